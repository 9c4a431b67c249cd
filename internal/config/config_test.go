package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntListOrDefault(t *testing.T) {
	def := []int{5, 10, 15, 20}
	tests := []struct {
		name     string
		envValue string
		expected []int
	}{
		{"parses list", "3, 6,9", []int{3, 6, 9}},
		{"uses default for empty", "", def},
		{"uses default for garbage", "5,ten", def},
		{"uses default for zero", "0,5", def},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_LIST", tc.envValue)

			result := getEnvAsIntListOrDefault("TEST_LIST", def)
			if len(result) != len(tc.expected) {
				t.Fatalf("Expected %v, got %v", tc.expected, result)
			}
			for i := range result {
				if result[i] != tc.expected[i] {
					t.Errorf("Expected %v, got %v", tc.expected, result)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_TEMPERATURE", "0.4")
	t.Setenv("SESSION_TTL_MINUTES", "30")

	cfg := Load()
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("Expected default model, got %q", cfg.GeminiModel)
	}
	if cfg.GeminiTemperature != 0.4 {
		t.Errorf("Expected temperature 0.4, got %v", cfg.GeminiTemperature)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m session TTL, got %v", cfg.SessionTTL)
	}
	if cfg.DefaultQuestionCount != 10 {
		t.Errorf("Expected default question count 10, got %d", cfg.DefaultQuestionCount)
	}
}

func TestLoad_PanicsWithoutSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GEMINI_API_KEY", "key")

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing JWT_SECRET")
		}
	}()
	Load()
}

func TestResolveDailyLimit(t *testing.T) {
	tests := []struct {
		name     string
		env      int
		profile  int
		expected int
	}{
		{"env wins", 3, 15, 3},
		{"profile next", 0, 15, 15},
		{"default", 0, 0, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{DailyLimit: tc.env}
			if got := cfg.ResolveDailyLimit(tc.profile); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Errorf("Expected time.Local, got %v (%v)", loc, err)
	}

	cfg.QuotaTimezone = "Asia/Kolkata"
	if loc, err := cfg.Location(); err != nil || loc.String() != "Asia/Kolkata" {
		t.Errorf("Expected Asia/Kolkata, got %v (%v)", loc, err)
	}

	cfg.QuotaTimezone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}
