package domain

import "time"

// Bookmark is a saved URL inside a group.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	ID     string `json:"id"`
	UserID string `json:"userId"`

	// ─────────────────────────────
	// Placement
	// ─────────────────────────────

	// SpaceID is denormalized from the owning group and must always equal
	// that group's SpaceID.
	SpaceID string `json:"spaceId"`
	GroupID string `json:"groupId"`

	// Order is unique among the live bookmarks of GroupID.
	Order int `json:"order"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title       string  `json:"title"`
	URL         string  `json:"url"`
	FaviconURL  *string `json:"faviconUrl,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPinned    bool    `json:"isPinned"`

	// ─────────────────────────────
	// Lifecycle
	// ─────────────────────────────

	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (b Bookmark) Key() string    { return b.ID }
func (b Bookmark) Scope() string  { return b.GroupID }
func (b Bookmark) Position() int  { return b.Order }
func (b Bookmark) Archived() bool { return b.IsArchived }

func (b Bookmark) WithPosition(order int) Bookmark {
	b.Order = order
	return b
}

// Updated returns the last modification time.
func (b Bookmark) Updated() time.Time { return b.UpdatedAt }

func (b Bookmark) Touched(at time.Time) Bookmark {
	b.UpdatedAt = at
	return b
}

// BookmarkInput creates a bookmark.
type BookmarkInput struct {
	SpaceID     string  `json:"spaceId"`
	GroupID     string  `json:"groupId"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	FaviconURL  *string `json:"faviconUrl,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (in BookmarkInput) Scope() string { return in.GroupID }

func (in BookmarkInput) Validate() error {
	if in.GroupID == "" {
		return invalid("groupId is required")
	}
	if in.SpaceID == "" {
		return invalid("spaceId is required")
	}
	if err := checkTitle(in.Title); err != nil {
		return err
	}
	if err := checkURL(in.URL); err != nil {
		return err
	}
	return checkDescription(in.Description)
}

func (in BookmarkInput) Build(id, userID string, order int, now time.Time) Bookmark {
	return Bookmark{
		ID:          id,
		UserID:      userID,
		SpaceID:     in.SpaceID,
		GroupID:     in.GroupID,
		Order:       order,
		Title:       in.Title,
		URL:         in.URL,
		FaviconURL:  in.FaviconURL,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BookmarkPatch updates a bookmark's content. Placement changes go through
// a move.
type BookmarkPatch struct {
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	FaviconURL  *string `json:"faviconUrl,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPinned    *bool   `json:"isPinned,omitempty"`
	IsArchived  *bool   `json:"isArchived,omitempty"`
}

func (p BookmarkPatch) Validate() error {
	if p.Title != nil {
		if err := checkTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.URL != nil {
		if err := checkURL(*p.URL); err != nil {
			return err
		}
	}
	return checkDescription(p.Description)
}

func (p BookmarkPatch) Apply(b Bookmark) Bookmark {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.FaviconURL != nil {
		b.FaviconURL = p.FaviconURL
	}
	if p.Description != nil {
		b.Description = p.Description
	}
	if p.IsPinned != nil {
		b.IsPinned = *p.IsPinned
	}
	if p.IsArchived != nil {
		b.IsArchived = *p.IsArchived
	}
	return b
}

// Move relocates a bookmark to a group, possibly in another space.
type Move struct {
	GroupID string `json:"groupId"`
	SpaceID string `json:"spaceId"`
}

func (m Move) Validate() error {
	if m.GroupID == "" || m.SpaceID == "" {
		return invalid("groupId and spaceId are required")
	}
	return nil
}
