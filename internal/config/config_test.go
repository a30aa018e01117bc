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

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      int
		expected int
	}{
		{name: "valid integer", key: "TEST_INT", value: "42", def: 1, expected: 42},
		{name: "invalid integer uses default", key: "TEST_INT_INVALID", value: "nope", def: 7, expected: 7},
		{name: "missing variable uses default", key: "TEST_INT_MISSING", value: "", def: 3, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := getenvInt(tt.key, tt.def); got != tt.expected {
				t.Errorf("getenvInt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected []string
	}{
		{name: "empty", in: "", expected: nil},
		{name: "single value", in: "value1", expected: []string{"value1"}},
		{name: "multiple values", in: "value1, value2 ,value3", expected: []string{"value1", "value2", "value3"}},
		{name: "quoted values", in: `"a.example", 'b.example'`, expected: []string{"a.example", "b.example"}},
		{name: "blank items dropped", in: "a,, ,b", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.in)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() length = %v, want %v (%v)", len(result), len(tt.expected), result)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
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
		{name: "true value", key: "TEST_BOOL", value: "true", def: false, expected: true},
		{name: "false value", key: "TEST_BOOL_FALSE", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "TEST_BOOL_INVALID", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "TEST_BOOL_MISSING", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{in: "09:00", h: 9, m: 0},
		{in: " 23:45 ", h: 23, m: 45},
		{in: "24:00", wantErr: true},
		{in: "9h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tt.in, err)
			}
			if h != tt.h || m != tt.m {
				t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.h, tt.m)
			}
		})
	}
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LEAKDESK_DB_DSN", "file::memory:")
	t.Setenv("LEAKDESK_DB_DRIVER", "sqlite")
	t.Setenv("LEAKDESK_API_BASE_URL", "http://upstream.local:5000/")
	t.Setenv("LEAKDESK_LOG_LEVEL", "info")
}

func TestLoadDashboard(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LEAKDESK_API_MAX_RETRIES", "-2")

	cfg := Load(ModeDashboard)

	if cfg.APIBaseURL != "http://upstream.local:5000" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if cfg.APIMaxRetries != 0 {
		t.Errorf("APIMaxRetries = %d, want 0 for negative input", cfg.APIMaxRetries)
	}
	if cfg.AccountsTable != "fetched_accounts" {
		t.Errorf("AccountsTable = %q, want default", cfg.AccountsTable)
	}
	if cfg.CatalogTTL != 5*time.Minute {
		t.Errorf("CatalogTTL = %v, want 5m", cfg.CatalogTTL)
	}
	if cfg.BotToken != "" {
		t.Errorf("BotToken should not be read in dashboard mode")
	}
	if cfg.RequestTimeout != 150*time.Second || cfg.APIReserve != 10*time.Second {
		t.Errorf("RequestTimeout = %v, APIReserve = %v", cfg.RequestTimeout, cfg.APIReserve)
	}
}

func TestLoadBotRequiresToken(t *testing.T) {
	setBaseEnv(t)

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load(ModeBot) should panic without LEAKDESK_BOT_TOKEN")
		}
	}()
	Load(ModeBot)
}

func TestLoadRejectsUnsafeTableName(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LEAKDESK_ACCOUNTS_TABLE", "accounts; DROP TABLE x")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should panic on a non-identifier table name")
		}
	}()
	Load(ModeDashboard)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LEAKDESK_DB_DRIVER", "oracle")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should panic on an unsupported driver")
		}
	}()
	Load(ModeDashboard)
}
