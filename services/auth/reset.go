package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authmesh/authcore/internal/randtext"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrIncorrectSecret = errors.New("incorrect reset secret")
	ErrResetExpired    = errors.New("password reset has expired")
)

// RequestReset issues a fresh single-use reset secret and emails the link.
// The same error covers an unknown username and a mismatched email so the
// response does not leak which field was wrong. Only the latest secret stays
// valid: the ticket row is overwritten on every request.
func (s *Service) RequestReset(host, username, email string) error {
	if s.logger != nil {
		s.logger.Info("password reset requested", zap.String("username", username))
	}

	u, err := s.users.FindByUsername(username)
	if err != nil {
		return err
	}

	if u.Email != email {
		if s.logger != nil {
			s.logger.Warn("password reset rejected - email mismatch", zap.String("username", username))
		}
		return user.ErrAccountNotFound
	}

	secret, err := randtext.Alnum(s.config.Auth.ResetSecretLength)
	if err != nil {
		return err
	}

	secretHash, err := s.HashPassword(secret)
	if err != nil {
		return err
	}

	if err := s.users.UpsertResetTicket(u.ID, secretHash); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/auth/reset-password/%s/%s", strings.TrimRight(host, "/"), u.Username, secret)

	if s.mailService == nil {
		if s.logger != nil {
			s.logger.Warn("mail service not configured, reset link not sent", zap.String("username", username))
		}
		return nil
	}

	// Best effort: the ticket is already persisted, so a failed send only
	// means the user retries the request.
	if err := s.mailService.SendTemplate("forgot_password", []string{u.Email}, "Forgot password", map[string]any{
		"Name":     u.Name,
		"ResetURL": resetURL,
		"AppName":  s.config.App.Name,
		"Expiry":   s.config.Auth.ResetExpiry.String(),
	}); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send reset email", zap.Error(err), zap.String("username", username))
		}
		return nil
	}

	if s.logger != nil {
		s.logger.Info("password reset email sent", zap.String("username", username))
	}
	return nil
}

// ConsumeReset validates the emailed secret against the stored hash and, on
// success, assigns a freshly generated password. The plaintext is returned
// for out-of-band delivery; the caller decides how to show or send it.
func (s *Service) ConsumeReset(username, secret string) (string, error) {
	if s.logger != nil {
		s.logger.Info("password reset consumption attempted", zap.String("username", username))
	}

	u, err := s.users.FindByUsername(username)
	if err != nil {
		return "", err
	}

	ticket, err := s.users.FindResetTicket(u.ID)
	if err != nil {
		return "", err
	}

	if ticket.Secret == nil {
		if s.logger != nil {
			s.logger.Warn("reset ticket already consumed", zap.String("username", username))
		}
		return "", user.ErrResetTicketNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*ticket.Secret), []byte(secret)); err != nil {
		if s.logger != nil {
			s.logger.Warn("incorrect reset secret", zap.String("username", username))
		}
		return "", ErrIncorrectSecret
	}

	if time.Since(ticket.UpdatedAt) > s.config.Auth.ResetExpiry {
		if s.logger != nil {
			s.logger.Warn("reset ticket expired",
				zap.String("username", username),
				zap.Time("issued_at", ticket.UpdatedAt))
		}
		return "", ErrResetExpired
	}

	if err := s.users.ConsumeResetTicket(u.ID); err != nil {
		return "", err
	}

	newPassword, err := randtext.Alnum(s.config.Auth.GeneratedPasswordLength)
	if err != nil {
		return "", err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdatePassword(u.ID, hash); err != nil {
		return "", err
	}

	if s.mailService != nil {
		if err := s.mailService.SendTemplate("reset_password", []string{u.Email}, "Your new password", map[string]any{
			"Name":        u.Name,
			"AppName":     s.config.App.Name,
			"NewPassword": newPassword,
		}); err != nil && s.logger != nil {
			s.logger.Error("failed to send new password email", zap.Error(err), zap.String("username", username))
		}
	}

	if s.logger != nil {
		s.logger.Info("password reset completed", zap.String("username", username))
	}
	return newPassword, nil
}
