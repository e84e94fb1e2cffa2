package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `envPrefix:"AUTHCORE_APP_"`
	Log      LogConfig      `envPrefix:"AUTHCORE_LOG_"`
	Database DatabaseConfig `envPrefix:"AUTHCORE_DB_"`
	Auth     AuthConfig     `envPrefix:"AUTHCORE_AUTH_"`
	JWT      JWTConfig      `envPrefix:"AUTHCORE_JWT_"`
	TOTP     TOTPConfig     `envPrefix:"AUTHCORE_TOTP_"`
	Mail     MailConfig     `envPrefix:"AUTHCORE_MAIL_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"authcore"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"json"`
	OutputPath string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"authcore.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	BcryptCost              int           `env:"BCRYPT_COST" envDefault:"10"`
	ResetSecretLength       int           `env:"RESET_SECRET_LENGTH" envDefault:"12"`
	GeneratedPasswordLength int           `env:"GENERATED_PASSWORD_LENGTH" envDefault:"12"`
	ResetExpiry             time.Duration `env:"RESET_EXPIRY" envDefault:"15m"`
}

type JWTConfig struct {
	SecretKey      string        `env:"SECRET"`
	Algorithm      string        `env:"ALGORITHM" envDefault:"HS256"`
	Issuer         string        `env:"ISSUER" envDefault:"authcore"`
	AccessExpiry   time.Duration `env:"ACCESS_EXPIRY" envDefault:"24h"`
	OTPTrustExpiry time.Duration `env:"OTP_TRUST_EXPIRY" envDefault:"1h"`
}

type TOTPConfig struct {
	Issuer string `env:"ISSUER" envDefault:"authcore"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"1025"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"none"`
	FromAddress  string `env:"FROM_ADDRESS" envDefault:"no-reply@localhost"`
	FromName     string `env:"FROM_NAME" envDefault:"authcore"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return Validate(cfg)
}

func Validate(cfg *Config) error {
	if err := validateJWTConfig(&cfg.JWT); err != nil {
		return err
	}

	if cfg.Auth.ResetExpiry <= 0 {
		return fmt.Errorf("reset expiry must be positive, got %s", cfg.Auth.ResetExpiry)
	}

	return nil
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT algorithm: %s (only HS256 is supported)", cfg.Algorithm)
	}

	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	lowered := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns")
		}
	}

	return nil
}
