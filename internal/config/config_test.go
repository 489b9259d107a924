package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                "development",
		Port:               "8080",
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		DBDriver:           "sqlite",
		SQLitePath:         ":memory:",
		ProjectionSchedule: "@every 30s",
		TracingExporter:    "stdout",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, true},
		{"bad schedule", func(c *Config) { c.ProjectionSchedule = "every now and then" }, true},
		{"bad exporter", func(c *Config) { c.TracingExporter = "zipkin" }, true},
		{"production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"production short secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = "short" }, true},
		{"production postgres without ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres with ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "  SQLITE ")
	t.Setenv("PORT", "9999")
	t.Setenv("FEATURE_FLAGS", "mention_notifications=on")
	t.Setenv("REFERRAL_BASE_URL", "https://confide.example/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "mention_notifications=on", c.FeatureFlags)
	assert.Equal(t, "https://confide.example", c.ReferralBaseURL)
	assert.Equal(t, "@every 30s", c.ProjectionSchedule)
	assert.Equal(t, 90, c.PresenceTTLSeconds)
}

func TestOrigins(t *testing.T) {
	c := &Config{AllowedOrigins: " http://a , ,http://b"}
	assert.Equal(t, []string{"http://a", "http://b"}, c.Origins())
}
