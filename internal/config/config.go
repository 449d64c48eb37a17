package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yoday/yoday/internal/models"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverDynamoDB = "dynamodb"
	StorageDriverMemory   = "memory"

	EnvProduction = "production"
)

type Config struct {
	AppEnv   string
	LogLevel string
	Server   ServerConfig
	Storage  StorageConfig
	DynamoDB DynamoDBConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OTP      OTPConfig
	AdminOTP OTPConfig
	Admin    AdminConfig
	SMS      SMSConfig
	Email    EmailConfig
	Facebook FacebookConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Driver string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey string
	Expiry    time.Duration
}

// OTPConfig parameterises one OTP engine. The user flow and the admin flow
// each get their own copy with a different Expiry and Purpose; an engine
// never verifies a challenge issued under another purpose.
type OTPConfig struct {
	Purpose    string
	Length     int
	Expiry     time.Duration
	HashCost   int
	TestBypass bool
	TestNumber string
	TestCode   string
}

type AdminConfig struct {
	SessionTTL   time.Duration
	CookieSecure bool
}

type SMSConfig struct {
	BaseURL    string
	AuthKey    string
	SenderID   string
	Route      string
	TemplateID string
	Timeout    time.Duration
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type FacebookConfig struct {
	GraphURL string
	Timeout  time.Duration
}

// Load builds the process configuration from the environment, with an
// optional .env file in the working directory underneath it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("PORT", "5000")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("DYNAMODB_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_TABLE_NAME", "YodayTable")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("REDIS_ENDPOINT", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY", 7*24*time.Hour)

	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY", 60*time.Second)
	v.SetDefault("OTP_HASH_COST", 10)
	v.SetDefault("OTP_TEST_BYPASS", false)
	v.SetDefault("OTP_TEST_NUMBER", "9999999999")
	v.SetDefault("OTP_TEST_CODE", "123456")
	v.SetDefault("ADMIN_OTP_EXPIRY", 5*time.Minute)
	v.SetDefault("ADMIN_SESSION_TTL", 24*time.Hour)
	v.SetDefault("ADMIN_COOKIE_SECURE", true)

	v.SetDefault("SMS_BASE_URL", "")
	v.SetDefault("SMS_AUTH_KEY", "")
	v.SetDefault("SMS_SENDER_ID", "")
	v.SetDefault("SMS_ROUTE", "")
	v.SetDefault("SMS_TEMPLATE_ID", "")
	v.SetDefault("SMS_TIMEOUT", 15*time.Second)

	v.SetDefault("EMAIL_HOST", "")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_USER", "")
	v.SetDefault("EMAIL_PASS", "")
	v.SetDefault("EMAIL_FROM", "")

	v.SetDefault("FACEBOOK_GRAPH_URL", "https://graph.facebook.com")
	v.SetDefault("FACEBOOK_TIMEOUT", 10*time.Second)
}

func fromViper(v *viper.Viper) (*Config, error) {
	otp := OTPConfig{
		Purpose:    models.OTPPurposeUser,
		Length:     v.GetInt("OTP_LENGTH"),
		Expiry:     v.GetDuration("OTP_EXPIRY"),
		HashCost:   v.GetInt("OTP_HASH_COST"),
		TestBypass: v.GetBool("OTP_TEST_BYPASS"),
		TestNumber: v.GetString("OTP_TEST_NUMBER"),
		TestCode:   v.GetString("OTP_TEST_CODE"),
	}
	admin := otp
	admin.Purpose = models.OTPPurposeAdmin
	admin.Expiry = v.GetDuration("ADMIN_OTP_EXPIRY")
	admin.TestBypass = false

	from := v.GetString("EMAIL_FROM")
	if from == "" {
		from = v.GetString("EMAIL_USER")
	}

	cfg := &Config{
		AppEnv:   strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  v.GetString("DYNAMODB_ENDPOINT"),
			Region:    v.GetString("DYNAMODB_REGION"),
			TableName: v.GetString("DYNAMODB_TABLE_NAME"),
		},
		Postgres: PostgresConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Endpoint: v.GetString("REDIS_ENDPOINT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("JWT_SECRET"),
			Expiry:    v.GetDuration("JWT_EXPIRY"),
		},
		OTP:      otp,
		AdminOTP: admin,
		Admin: AdminConfig{
			SessionTTL:   v.GetDuration("ADMIN_SESSION_TTL"),
			CookieSecure: v.GetBool("ADMIN_COOKIE_SECURE"),
		},
		SMS: SMSConfig{
			BaseURL:    v.GetString("SMS_BASE_URL"),
			AuthKey:    v.GetString("SMS_AUTH_KEY"),
			SenderID:   v.GetString("SMS_SENDER_ID"),
			Route:      v.GetString("SMS_ROUTE"),
			TemplateID: v.GetString("SMS_TEMPLATE_ID"),
			Timeout:    v.GetDuration("SMS_TIMEOUT"),
		},
		Email: EmailConfig{
			Host:     v.GetString("EMAIL_HOST"),
			Port:     v.GetInt("EMAIL_PORT"),
			User:     v.GetString("EMAIL_USER"),
			Password: v.GetString("EMAIL_PASS"),
			From:     from,
		},
		Facebook: FacebookConfig{
			GraphURL: strings.TrimRight(v.GetString("FACEBOOK_GRAPH_URL"), "/"),
			Timeout:  v.GetDuration("FACEBOOK_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the process relies on.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes (256 bits)")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive")
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORAGE_DRIVER=postgres")
		}
	case StorageDriverDynamoDB:
		if c.DynamoDB.TableName == "" {
			return fmt.Errorf("DYNAMODB_TABLE_NAME must be set when STORAGE_DRIVER=dynamodb")
		}
	case StorageDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_DRIVER=memory is not allowed when APP_ENV=production")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	for name, otp := range map[string]OTPConfig{"OTP": c.OTP, "ADMIN_OTP": c.AdminOTP} {
		if otp.Length != 6 {
			return fmt.Errorf("%s_LENGTH must be 6, got %d", name, otp.Length)
		}
		if otp.Expiry <= 0 {
			return fmt.Errorf("%s_EXPIRY must be positive", name)
		}
	}
	if c.OTP.Purpose == c.AdminOTP.Purpose {
		return fmt.Errorf("OTP and ADMIN_OTP engines must use different purposes")
	}
	if c.OTP.HashCost < 4 || c.OTP.HashCost > 31 {
		return fmt.Errorf("OTP_HASH_COST must be between 4 and 31")
	}

	if c.OTP.TestBypass {
		if c.IsProduction() {
			return fmt.Errorf("OTP_TEST_BYPASS must not be true when APP_ENV=production")
		}
		if c.OTP.TestNumber == "" || len(c.OTP.TestCode) != c.OTP.Length {
			return fmt.Errorf("OTP_TEST_BYPASS requires OTP_TEST_NUMBER and a %d digit OTP_TEST_CODE", c.OTP.Length)
		}
	}

	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("ADMIN_SESSION_TTL must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Address returns the listen address for net/http.
func (c *Config) Address() string {
	if strings.HasPrefix(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
