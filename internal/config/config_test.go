package config

import (
	"strings"
	"testing"
	"time"

	"github.com/yoday/yoday/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	otp := OTPConfig{Purpose: models.OTPPurposeUser, Length: 6, Expiry: time.Minute, HashCost: 10, TestNumber: "9999999999", TestCode: "123456"}
	admin := otp
	admin.Purpose = models.OTPPurposeAdmin
	admin.Expiry = 5 * time.Minute
	return &Config{
		AppEnv:   "development",
		Storage:  StorageConfig{Driver: StorageDriverMemory},
		JWT:      JWTConfig{SecretKey: testSecret, Expiry: time.Hour},
		OTP:      otp,
		AdminOTP: admin,
		Admin:    AdminConfig{SessionTTL: time.Hour},
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("PORT", "8080")
	t.Setenv("OTP_EXPIRY", "90s")
	t.Setenv("EMAIL_USER", "noreply@yoday.app")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverMemory {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("Address = %q, want :8080", cfg.Address())
	}
	if cfg.OTP.Expiry != 90*time.Second {
		t.Errorf("OTP.Expiry = %v, want 90s", cfg.OTP.Expiry)
	}
	if cfg.AdminOTP.Expiry != 5*time.Minute {
		t.Errorf("AdminOTP.Expiry = %v, want 5m", cfg.AdminOTP.Expiry)
	}
	if cfg.OTP.Purpose != models.OTPPurposeUser || cfg.AdminOTP.Purpose != models.OTPPurposeAdmin {
		t.Errorf("purposes = %q/%q, want user/admin", cfg.OTP.Purpose, cfg.AdminOTP.Purpose)
	}
	if cfg.AdminOTP.TestBypass {
		t.Error("admin OTP inherited the test bypass")
	}
	if cfg.Email.From != "noreply@yoday.app" {
		t.Errorf("Email.From = %q, want EMAIL_USER fallback", cfg.Email.From)
	}
	if cfg.JWT.Expiry != 7*24*time.Hour {
		t.Errorf("JWT.Expiry = %v, want 7 days", cfg.JWT.Expiry)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("Load err = %v, want JWT_SECRET error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.JWT.SecretKey = "short" }, "at least 32 bytes"},
		{"postgres without url", func(c *Config) { c.Storage.Driver = StorageDriverPostgres }, "DATABASE_URL"},
		{"dynamo without table", func(c *Config) { c.Storage.Driver = StorageDriverDynamoDB }, "DYNAMODB_TABLE_NAME"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "unsupported STORAGE_DRIVER"},
		{"memory in production", func(c *Config) { c.AppEnv = EnvProduction }, "not allowed"},
		{"wrong OTP length", func(c *Config) { c.OTP.Length = 4 }, "OTP_LENGTH"},
		{"zero admin expiry", func(c *Config) { c.AdminOTP.Expiry = 0 }, "ADMIN_OTP_EXPIRY"},
		{"hash cost", func(c *Config) { c.OTP.HashCost = 40 }, "OTP_HASH_COST"},
		{"bypass in production", func(c *Config) {
			c.AppEnv = EnvProduction
			c.Storage.Driver = StorageDriverPostgres
			c.Postgres.URL = "postgres://db/yoday"
			c.OTP.TestBypass = true
		}, "OTP_TEST_BYPASS"},
		{"bypass with bad code", func(c *Config) {
			c.OTP.TestBypass = true
			c.OTP.TestCode = "12"
		}, "OTP_TEST_CODE"},
		{"shared purpose", func(c *Config) { c.AdminOTP.Purpose = c.OTP.Purpose }, "different purposes"},
		{"session ttl", func(c *Config) { c.Admin.SessionTTL = 0 }, "ADMIN_SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
