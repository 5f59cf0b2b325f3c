package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID(PrefixSpace)
		if !strings.HasPrefix(id, PrefixSpace) || len(id) != len(PrefixSpace)+idLength {
			t.Fatalf("unexpected id shape %q", id)
		}
		for _, c := range strings.TrimPrefix(id, PrefixSpace) {
			if !strings.ContainsRune(idAlphabet, c) {
				t.Fatalf("id %q has a character outside the alphabet", id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{ Validate() error }
		wantErr bool
	}{
		{"space ok", SpaceInput{Name: "Work", Icon: "💼"}, false},
		{"space blank name", SpaceInput{Name: "   ", Icon: "💼"}, true},
		{"space long name", SpaceInput{Name: strings.Repeat("a", 51), Icon: "💼"}, true},
		{"space missing icon", SpaceInput{Name: "Work"}, true},
		{"space icon too long", SpaceInput{Name: "Work", Icon: "abcde"}, true},
		{"group ok", GroupInput{SpaceID: "space_1", Name: "Dev"}, false},
		{"group without space", GroupInput{Name: "Dev"}, true},
		{"bookmark ok", BookmarkInput{SpaceID: "s", GroupID: "g", Title: "Go", URL: "https://go.dev"}, false},
		{"bookmark without group", BookmarkInput{SpaceID: "s", Title: "Go", URL: "https://go.dev"}, true},
		{"bookmark relative url", BookmarkInput{SpaceID: "s", GroupID: "g", Title: "Go", URL: "/docs"}, true},
		{"bookmark long title", BookmarkInput{SpaceID: "s", GroupID: "g", Title: strings.Repeat("t", 101), URL: "https://go.dev"}, true},
		{"bookmark long description", BookmarkInput{SpaceID: "s", GroupID: "g", Title: "Go", URL: "https://go.dev", Description: ptr(strings.Repeat("d", 501))}, true},
		{"space patch empty", SpacePatch{}, false},
		{"space patch blank name", SpacePatch{Name: ptr("")}, true},
		{"group patch empty space", GroupPatch{SpaceID: ptr("")}, true},
		{"bookmark patch bad url", BookmarkPatch{URL: ptr("nope")}, true},
		{"bookmark patch pin", BookmarkPatch{IsPinned: ptr(true)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRemoteErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("create: %w", &RemoteError{Op: "space.create", Err: ErrNotFound})
	if !IsRemote(err) || !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoteError should be detectable and unwrap, got %v", err)
	}
	if IsRemote(ErrNotFound) {
		t.Error("plain errors are not remote")
	}
}
