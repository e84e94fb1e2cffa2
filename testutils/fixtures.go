package testutils

import (
	"time"

	"github.com/authmesh/authcore/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "authcore",
			URL:  "http://localhost:8080",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			BcryptCost:              bcrypt.MinCost,
			ResetSecretLength:       12,
			GeneratedPasswordLength: 12,
			ResetExpiry:             15 * time.Minute,
		},
		JWT: config.JWTConfig{
			SecretKey:      "k9f2m7q4w8r1z5x3c6v0b2n8j4h7g1d5",
			Algorithm:      "HS256",
			Issuer:         "authcore",
			AccessExpiry:   15 * time.Minute,
			OTPTrustExpiry: time.Hour,
		},
		TOTP: config.TOTPConfig{
			Issuer: "authcore",
		},
		Mail: config.MailConfig{
			Host:        "localhost",
			Port:        1025,
			Encryption:  "none",
			FromAddress: "no-reply@localhost",
			FromName:    "authcore",
		},
	}
}

var TestPasswords = struct {
	Valid   string
	Wrong   string
	Changed string
}{
	Valid:   "Sup3rS3cure!",
	Wrong:   "NotTheOne42",
	Changed: "Fresh1yMinted",
}
