package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("MARKS_STORAGE", "")
	t.Setenv("MARKS_ALLOWED_CIDRS", "10.0.0.0/8, '192.168.1.1'")

	cfg := LoadServer()
	if cfg.Storage != "memory" {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if cfg.GCThreshold != 30*24*time.Hour {
		t.Errorf("GCThreshold = %v, want 720h", cfg.GCThreshold)
	}
	if len(cfg.AllowedCIDRS) != 2 || cfg.AllowedCIDRS[1] != "192.168.1.1" {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadServerRedisRequiresPassword(t *testing.T) {
	t.Setenv("MARKS_STORAGE", "redis")
	t.Setenv("MARKS_REDIS_ADDR", "localhost:6379")
	t.Setenv("MARKS_REDIS_PASSWORD", "")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("LoadServer() should have panicked without a redis password")
		}
	}()
	LoadServer()
}

func TestLoadServerRejectsUnknownStorage(t *testing.T) {
	t.Setenv("MARKS_STORAGE", "postgres")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("LoadServer() should have panicked on unknown storage")
		}
	}()
	LoadServer()
}

func TestLoadClient(t *testing.T) {
	t.Setenv("MARKS_USER", "user_1")
	t.Setenv("MARKS_SERVER_URL", "http://marks.local/")
	t.Setenv("MARKS_BOOTSTRAP_BASE_DELAY", "500ms")

	cfg := LoadClient()
	if cfg.ServerURL != "http://marks.local" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.BootstrapRetries != 3 || cfg.BootstrapBaseDelay != 500*time.Millisecond {
		t.Errorf("bootstrap policy = %d/%v", cfg.BootstrapRetries, cfg.BootstrapBaseDelay)
	}
	if cfg.LocalStore != "pebble" {
		t.Errorf("LocalStore = %q, want pebble", cfg.LocalStore)
	}
}

func TestLoadClientRedisLocalStore(t *testing.T) {
	t.Setenv("MARKS_USER", "user_1")
	t.Setenv("MARKS_LOCAL_STORE", "Redis")
	t.Setenv("MARKS_REDIS_ADDR", "localhost:6379")
	t.Setenv("MARKS_REDIS_PASSWORD_REQUIRED", "false")

	cfg := LoadClient()
	if cfg.LocalStore != "redis" || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected local store config %q %+v", cfg.LocalStore, cfg.Redis)
	}

	t.Setenv("MARKS_LOCAL_STORE", "sqlite")
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an unknown local store")
		}
	}()
	LoadClient()
}
