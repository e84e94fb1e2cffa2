package auth

import (
	"errors"
	"fmt"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrPasswordMismatch      = errors.New("password and confirmation do not match")
)

// MailService is the outbound email collaborator. Delivery failures are the
// caller's to log; the reset flow treats sending as best-effort.
type MailService interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

type Service struct {
	config      *config.Config
	users       *user.Service
	mailService MailService
	logger      *logging.Service
}

func NewService(cfg *config.Config, users *user.Service, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		config: cfg,
		users:  users,
		logger: logger,
	}
}

func (s *Service) SetMailService(mailService MailService) {
	s.mailService = mailService
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) MustHashPassword(password string) string {
	hash, err := s.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

// RegisterRequest is the admin-facing account creation payload, with the
// plaintext password and its confirmation.
type RegisterRequest struct {
	Name            string
	Age             int
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	IsAdmin         bool
}

func (s *Service) Register(req RegisterRequest) (*user.User, error) {
	if s.logger != nil {
		s.logger.Info("registering account", zap.String("username", req.Username))
	}

	if req.Password != req.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	return s.users.Register(user.RegisterRequest{
		Name:         req.Name,
		Age:          req.Age,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
	})
}

func (s *Service) ChangePassword(userID uint, password, passwordConfirm string) error {
	if password != passwordConfirm {
		if s.logger != nil {
			s.logger.Warn("password change rejected - confirmation mismatch", zap.Uint("user_id", userID))
		}
		return ErrPasswordMismatch
	}

	if _, err := s.users.FindByID(userID); err != nil {
		return err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(userID, hash); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("password changed", zap.Uint("user_id", userID))
	}
	return nil
}

// Authenticate resolves username+password to an account. The error is the
// same whether the user is unknown or the password is wrong, so responses
// cannot be used to enumerate usernames.
func (s *Service) Authenticate(username, password string) (*user.User, error) {
	u, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, user.ErrAccountNotFound) {
			if s.logger != nil {
				s.logger.Warn("authentication failed", zap.String("username", username))
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := s.VerifyPassword(u.Password, password); err != nil {
		if s.logger != nil {
			s.logger.Warn("authentication failed", zap.String("username", username))
		}
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
