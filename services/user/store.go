package user

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicateAccount    = errors.New("username or email already taken")
	ErrResetTicketNotFound = errors.New("no password reset ticket for account")
	ErrInvalidUsername     = errors.New("username must be 5-50 characters of letters, digits or underscore")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidName         = errors.New("name must be 1-50 characters")
	ErrInvalidAge          = errors.New("age must be between 1 and 100")
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{5,50}$`)
	emailRe    = regexp.MustCompile(`^[\w.+-]+@([\w-]+\.)+[\w-]{2,}$`)
)

type Service struct {
	config *config.Config
	db     *gorm.DB
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying handle for migrations and test fixtures.
func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) FindByID(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account by id: %w", err)
	}
	return &u, nil
}

func (s *Service) FindByUsername(username string) (*User, error) {
	var u User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account by username: %w", err)
	}
	return &u, nil
}

func (s *Service) FindByEmail(email string) (*User, error) {
	var u User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	return &u, nil
}

func (s *Service) List() ([]User, error) {
	var users []User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return users, nil
}

// RegisterRequest carries an already-hashed password; plaintext never
// reaches this package.
type RegisterRequest struct {
	Name         string
	Age          int
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

func (s *Service) Register(req RegisterRequest) (*User, error) {
	if s.logger != nil {
		s.logger.Info("registering account", zap.String("username", req.Username))
	}

	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateAge(req.Age); err != nil {
		return nil, err
	}
	if !usernameRe.MatchString(req.Username) {
		return nil, ErrInvalidUsername
	}
	if !emailRe.MatchString(req.Email) {
		return nil, ErrInvalidEmail
	}

	if _, err := s.FindByUsername(req.Username); err == nil {
		if s.logger != nil {
			s.logger.Warn("registration rejected - username taken", zap.String("username", req.Username))
		}
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	if _, err := s.FindByEmail(req.Email); err == nil {
		if s.logger != nil {
			s.logger.Warn("registration rejected - email taken", zap.String("email", req.Email))
		}
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	u := &User{
		Name:        req.Name,
		Age:         req.Age,
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.PasswordHash,
		IsAdmin:     req.IsAdmin,
		IsLoggedOut: true,
	}

	if err := s.db.Create(u).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to create account", zap.Error(err), zap.String("username", req.Username))
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("account registered", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	}
	return u, nil
}

// Update lists the only profile fields allowed to change. Nil pointers are
// left untouched; everything set is validated before a single row update.
type Update struct {
	Name  *string
	Age   *int
	Email *string
}

func (s *Service) UpdateProfile(id uint, upd Update) (*User, error) {
	fields := map[string]any{}

	if upd.Name != nil {
		if err := validateName(*upd.Name); err != nil {
			return nil, err
		}
		fields["name"] = *upd.Name
	}
	if upd.Age != nil {
		if err := validateAge(*upd.Age); err != nil {
			return nil, err
		}
		fields["age"] = *upd.Age
	}
	if upd.Email != nil {
		if !emailRe.MatchString(*upd.Email) {
			return nil, ErrInvalidEmail
		}
		if existing, err := s.FindByEmail(*upd.Email); err == nil && existing.ID != id {
			return nil, ErrDuplicateAccount
		} else if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		fields["email"] = *upd.Email
	}

	if len(fields) > 0 {
		if err := s.updateFields(id, fields); err != nil {
			return nil, err
		}
	}

	return s.FindByID(id)
}

func (s *Service) Delete(id uint) error {
	result := s.db.Delete(&User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	if s.logger != nil {
		s.logger.Info("account deleted", zap.Uint("user_id", id))
	}
	return nil
}

func (s *Service) UpdatePassword(id uint, passwordHash string) error {
	return s.updateFields(id, map[string]any{"password": passwordHash})
}

func (s *Service) SetLoggedOut(id uint, loggedOut bool) error {
	return s.updateFields(id, map[string]any{"is_logged_out": loggedOut})
}

func (s *Service) SetOTPSecret(id uint, secret string) error {
	return s.updateFields(id, map[string]any{"otp_secret": secret})
}

// EnableOTP marks the account's first successful code verification.
func (s *Service) EnableOTP(id uint) error {
	return s.updateFields(id, map[string]any{
		"is_enable_otp": true,
		"is_logged_out": false,
	})
}

// ClearOTP de-provisions MFA entirely and revokes the session trust.
func (s *Service) ClearOTP(id uint) error {
	return s.updateFields(id, map[string]any{
		"otp_secret":    nil,
		"otp_recovery":  nil,
		"is_enable_otp": false,
		"is_logged_out": true,
	})
}

func (s *Service) SetRecoveryCodes(id uint, codes []string) error {
	return s.updateFields(id, map[string]any{"otp_recovery": RecoveryCodes(codes)})
}

// updateFields is the single mutation path for accounts: one Updates call,
// atomic at row granularity.
func (s *Service) updateFields(id uint, fields map[string]any) error {
	result := s.db.Model(&User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("account update failed", zap.Error(result.Error), zap.Uint("user_id", id))
		}
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Service) FindResetTicket(userID uint) (*PasswordReset, error) {
	var ticket PasswordReset
	if err := s.db.Where("user_id = ?", userID).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTicketNotFound
		}
		return nil, fmt.Errorf("failed to look up reset ticket: %w", err)
	}
	return &ticket, nil
}

// UpsertResetTicket replaces any prior ticket for the account; only one
// reset secret is ever live per user, last writer wins.
func (s *Service) UpsertResetTicket(userID uint, secretHash string) error {
	ticket, err := s.FindResetTicket(userID)
	if errors.Is(err, ErrResetTicketNotFound) {
		ticket = &PasswordReset{UserID: userID, Secret: &secretHash}
		if err := s.db.Create(ticket).Error; err != nil {
			return fmt.Errorf("failed to create reset ticket: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	result := s.db.Model(&PasswordReset{}).Where("user_id = ?", userID).Updates(map[string]any{
		"secret":     secretHash,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to overwrite reset ticket: %w", result.Error)
	}
	return nil
}

// ConsumeResetTicket clears the secret so the emailed link is single-use.
func (s *Service) ConsumeResetTicket(userID uint) error {
	result := s.db.Model(&PasswordReset{}).Where("user_id = ?", userID).Updates(map[string]any{
		"secret":     nil,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to consume reset ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetTicketNotFound
	}
	return nil
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > 50 {
		return ErrInvalidName
	}
	return nil
}

func validateAge(age int) error {
	if age <= 0 || age > 100 {
		return ErrInvalidAge
	}
	return nil
}
