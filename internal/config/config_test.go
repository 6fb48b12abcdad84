package config

import (
	"os"
	"testing"
	"time"
)

// TestLoadDefaults tests that default configuration values are loaded correctly.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	if cfg.Engine.MapFile != "landscape.yaml" {
		t.Errorf("Expected default map file 'landscape.yaml', got '%s'", cfg.Engine.MapFile)
	}
	if cfg.Engine.DefaultClient != "default" {
		t.Errorf("Expected default client 'default', got '%s'", cfg.Engine.DefaultClient)
	}
	if cfg.Engine.ClientTimeout != 60*time.Second {
		t.Errorf("Expected default client timeout 60s, got %v", cfg.Engine.ClientTimeout)
	}
	if cfg.Engine.StopTimeout != 10*time.Second {
		t.Errorf("Expected default stop timeout 10s, got %v", cfg.Engine.StopTimeout)
	}
	if cfg.Engine.CheckExecMode != "FULL" {
		t.Errorf("Expected default check_exec_mode 'FULL', got '%s'", cfg.Engine.CheckExecMode)
	}
	if cfg.Engine.SkipLimitReset != false {
		t.Errorf("Expected default skip_limit_reset false, got %v", cfg.Engine.SkipLimitReset)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default logging level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Expected default logging format 'console', got '%s'", cfg.Logging.Format)
	}
}

// TestValidation tests the configuration validation logic.
func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		expectErr bool
		errMsg    string
	}{
		{
			name: "valid configuration",
			cfg: &Config{
				Engine:  EngineConfig{CheckExecMode: "FULL"},
				Logging: LoggingConfig{Level: "info"},
			},
			expectErr: false,
		},
		{
			name: "invalid check_exec_mode",
			cfg: &Config{
				Engine:  EngineConfig{CheckExecMode: "BOGUS"},
				Logging: LoggingConfig{Level: "info"},
			},
			expectErr: true,
			errMsg:    "invalid engine.check_exec_mode",
		},
		{
			name: "invalid logging level",
			cfg: &Config{
				Engine:  EngineConfig{CheckExecMode: "NONE"},
				Logging: LoggingConfig{Level: "verbose"},
			},
			expectErr: true,
			errMsg:    "invalid logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.cfg)
			if tt.expectErr {
				if err == nil {
					t.Errorf("Expected error containing '%s', got nil", tt.errMsg)
				} else if !contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

// TestEnvironmentVariableOverride tests that environment variables override config values.
func TestEnvironmentVariableOverride(t *testing.T) {
	originalClient := os.Getenv("LANDSCAPER_ENGINE_DEFAULT_CLIENT")
	originalLevel := os.Getenv("LANDSCAPER_LOGGING_LEVEL")

	os.Setenv("LANDSCAPER_ENGINE_DEFAULT_CLIENT", "staging")
	os.Setenv("LANDSCAPER_LOGGING_LEVEL", "debug")

	defer func() {
		if originalClient != "" {
			os.Setenv("LANDSCAPER_ENGINE_DEFAULT_CLIENT", originalClient)
		} else {
			os.Unsetenv("LANDSCAPER_ENGINE_DEFAULT_CLIENT")
		}
		if originalLevel != "" {
			os.Setenv("LANDSCAPER_LOGGING_LEVEL", originalLevel)
		} else {
			os.Unsetenv("LANDSCAPER_LOGGING_LEVEL")
		}
	}()

	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.DefaultClient != "staging" {
		t.Errorf("Expected default client 'staging' from environment, got '%s'", cfg.Engine.DefaultClient)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug' from environment, got '%s'", cfg.Logging.Level)
	}
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	retrieved := Get()
	if retrieved == nil {
		t.Fatal("Get() returned nil")
	}
	if retrieved.Engine.DefaultClient != "default" && retrieved.Engine.DefaultClient != "staging" {
		t.Errorf("Get() returned unexpected default client %q", retrieved.Engine.DefaultClient)
	}
}

// Helper function to check if a string contains a substring.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && len(substr) > 0 && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
