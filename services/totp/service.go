package totp

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/internal/randtext"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/user"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

var (
	ErrIncorrectOTP   = errors.New("incorrect OTP code")
	ErrSecretNotFound = errors.New("no OTP secret provisioned for account")
)

const recoveryCodeCount = 8

// Service drives the per-account OTP state machine:
// NoSecret -> SecretProvisioned -> OTPEnabled.
type Service struct {
	config *config.Config
	users  *user.Service
	logger *logging.Service
}

func NewService(cfg *config.Config, users *user.Service, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		users:  users,
		logger: logger,
	}
}

// Provision generates and persists a fresh base32 secret for accounts that
// have none. An existing secret is returned as-is: provisioning must never
// silently rotate a secret an authenticator app already holds.
func (s *Service) Provision(u *user.User) (string, error) {
	if u.OTPSecret != nil && *u.OTPSecret != "" {
		if s.logger != nil {
			s.logger.Debug("OTP secret already provisioned", zap.Uint("user_id", u.ID))
		}
		return *u.OTPSecret, nil
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer(),
		AccountName: u.Username,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate OTP secret", zap.Error(err), zap.Uint("user_id", u.ID))
		}
		return "", fmt.Errorf("failed to generate OTP secret: %w", err)
	}

	secret := key.Secret()
	if err := s.users.SetOTPSecret(u.ID, secret); err != nil {
		return "", err
	}
	u.OTPSecret = &secret

	if s.logger != nil {
		s.logger.Info("OTP secret provisioned", zap.Uint("user_id", u.ID))
	}
	return secret, nil
}

// ProvisioningURI builds the otpauth:// URI encoded into the QR code. Pure.
func (s *Service) ProvisioningURI(username, secret string) string {
	issuer := s.issuer()
	label := url.PathEscape(issuer + ":" + username)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyCode validates a 6-digit code against the current 30-second window.
// The first success is the activation event: it enables OTP for the account
// and clears the logged-out flag in one atomic update.
func (s *Service) VerifyCode(u *user.User, code string) error {
	if u.OTPSecret == nil || *u.OTPSecret == "" {
		if s.logger != nil {
			s.logger.Warn("OTP verification attempted without provisioned secret", zap.Uint("user_id", u.ID))
		}
		return ErrSecretNotFound
	}

	if !totp.Validate(code, *u.OTPSecret) {
		if s.logger != nil {
			s.logger.Warn("OTP verification failed", zap.Uint("user_id", u.ID))
		}
		return ErrIncorrectOTP
	}

	if err := s.users.EnableOTP(u.ID); err != nil {
		return err
	}
	u.IsEnableOTP = true
	u.IsLoggedOut = false

	if s.logger != nil {
		s.logger.Info("OTP code verified", zap.Uint("user_id", u.ID))
	}
	return nil
}

// GenerateRecoveryCodes issues the account's recovery set exactly once.
// While codes exist the stored set is returned unchanged.
func (s *Service) GenerateRecoveryCodes(u *user.User) ([]string, error) {
	if len(u.OTPRecovery) > 0 {
		return u.OTPRecovery, nil
	}

	codes := make([]string, 0, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := s.users.SetRecoveryCodes(u.ID, codes); err != nil {
		return nil, err
	}
	u.OTPRecovery = codes

	if s.logger != nil {
		s.logger.Info("recovery codes generated", zap.Uint("user_id", u.ID), zap.Int("count", len(codes)))
	}
	return codes, nil
}

// VerifyRecoveryCode is the one-way escape hatch for a lost authenticator:
// a matching code fully de-provisions OTP (secret and recovery set cleared,
// enabled flag dropped, session revoked) so the account can re-enroll.
func (s *Service) VerifyRecoveryCode(u *user.User, code string) error {
	if !u.OTPRecovery.Contains(code) {
		if s.logger != nil {
			s.logger.Warn("recovery code verification failed", zap.Uint("user_id", u.ID))
		}
		return ErrIncorrectOTP
	}

	if err := s.users.ClearOTP(u.ID); err != nil {
		return err
	}
	u.OTPSecret = nil
	u.OTPRecovery = nil
	u.IsEnableOTP = false
	u.IsLoggedOut = true

	if s.logger != nil {
		s.logger.Info("OTP de-provisioned via recovery code", zap.Uint("user_id", u.ID))
	}
	return nil
}

func (s *Service) issuer() string {
	if s.config.TOTP.Issuer == "" {
		return s.config.App.Name
	}
	return s.config.TOTP.Issuer
}

func newRecoveryCode() (string, error) {
	left, err := randtext.Alnum(4)
	if err != nil {
		return "", err
	}
	right, err := randtext.Alnum(4)
	if err != nil {
		return "", err
	}
	return left + "-" + right, nil
}
