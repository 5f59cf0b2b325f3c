package redis

import (
	"context"
	"testing"
	"time"
)

func validOptions() Options {
	return Options{
		Addr:           "127.0.0.1:1",
		ConnectTimeout: 50 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    10 * time.Millisecond,
		DialTimeout:    10 * time.Millisecond,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{"valid", func(*Options) {}, true},
		{"no addr", func(o *Options) { o.Addr = "" }, false},
		{"no connect timeout", func(o *Options) { o.ConnectTimeout = 0 }, false},
		{"no retry interval", func(o *Options) { o.RetryInterval = 0 }, false},
		{"no max wait", func(o *Options) { o.MaxWait = 0 }, false},
		{"no ping timeout", func(o *Options) { o.PingTimeout = 0 }, false},
		{"negative threshold", func(o *Options) { o.WarnThreshold = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions()
			tt.mutate(&o)
			if err := o.validate(); (err == nil) != tt.ok {
				t.Errorf("validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestNextWaitIsCapped(t *testing.T) {
	w := time.Second
	for _, want := range []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second} {
		w = nextWait(w, 5*time.Second)
		if w != want {
			t.Fatalf("expected %v, got %v", want, w)
		}
	}
}

func TestConnectGivesUpAfterTimeout(t *testing.T) {
	start := time.Now()
	_, err := Connect(context.Background(), validOptions(), nil)
	if err == nil {
		t.Fatal("expected error for unreachable address")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Connect did not honour ConnectTimeout")
	}
}
