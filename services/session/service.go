package session

import (
	"errors"
	"time"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/auth"
	"github.com/authmesh/authcore/services/jwt"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/totp"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/zap"
)

var (
	ErrSessionRevoked  = errors.New("session has been revoked")
	ErrOTPTrustExpired = errors.New("OTP trust has expired")
	ErrNotAdmin        = errors.New("admin privileges required")
)

// Service orchestrates login, token issuance, step-up and the authorization
// gates. It is the only component that mints or interprets session tokens.
type Service struct {
	config *config.Config
	users  *user.Service
	auth   *auth.Service
	tokens *jwt.Service
	otp    *totp.Service
	logger *logging.Service
}

func NewService(cfg *config.Config, users *user.Service, authSvc *auth.Service, tokens *jwt.Service, otp *totp.Service, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		users:  users,
		auth:   authSvc,
		tokens: tokens,
		otp:    otp,
		logger: logger,
	}
}

// LoginResult carries the freshly minted token. Its OTP trust is already
// spent: every OTP-gated action needs a step-up first. When the account has
// never enabled OTP, ProvisioningURI is set so the caller can render a QR
// code for enrollment.
type LoginResult struct {
	User             *user.User
	Token            string
	RequiresOTPSetup bool
	ProvisioningURI  string
}

func (s *Service) Login(username, password string) (*LoginResult, error) {
	u, err := s.auth.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetLoggedOut(u.ID, false); err != nil {
		return nil, err
	}
	u.IsLoggedOut = false

	result := &LoginResult{
		User:             u,
		RequiresOTPSetup: !u.IsEnableOTP,
	}

	if result.RequiresOTPSetup {
		secret, err := s.otp.Provision(u)
		if err != nil {
			return nil, err
		}
		result.ProvisioningURI = s.otp.ProvisioningURI(u.Username, secret)
	}

	token, err := s.IssueToken(u, s.config.JWT.AccessExpiry, 0)
	if err != nil {
		return nil, err
	}
	result.Token = token

	if s.logger != nil {
		s.logger.Info("login successful",
			zap.Uint("user_id", u.ID),
			zap.Bool("requires_otp_setup", result.RequiresOTPSetup))
	}
	return result, nil
}

// IssueToken mints a session token for the account. A zero otpTrustTTL
// produces a token whose OTP trust is already spent at issuance.
func (s *Service) IssueToken(u *user.User, accessTTL, otpTrustTTL time.Duration) (string, error) {
	return s.tokens.Generate(u.ID, u.IsAdmin, accessTTL, otpTrustTTL)
}

// StepUp exchanges a current TOTP code for a token with full OTP trust. The
// access horizon of the replacement is capped by accessTTL, typically the
// remaining lifetime of the token used to reach the step-up endpoint.
func (s *Service) StepUp(u *user.User, code string, accessTTL time.Duration) (string, error) {
	if err := s.otp.VerifyCode(u, code); err != nil {
		return "", err
	}

	token, err := s.IssueToken(u, accessTTL, s.config.JWT.OTPTrustExpiry)
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info("step-up completed", zap.Uint("user_id", u.ID))
	}
	return token, nil
}

// Authorize layers live-account checks over codec validation: the token may
// be cryptographically valid yet refused because the account is gone or has
// been logged out server-side.
func (s *Service) Authorize(token string) (*jwt.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}

	if u.IsLoggedOut {
		if s.logger != nil {
			s.logger.Warn("authorization refused - session revoked", zap.Uint("user_id", u.ID))
		}
		return nil, ErrSessionRevoked
	}

	return claims, nil
}

func (s *Service) AuthorizeWithOTPTrust(token string) (*jwt.Claims, error) {
	claims, err := s.Authorize(token)
	if err != nil {
		return nil, err
	}

	if claims.OTPTrustExpired() {
		if s.logger != nil {
			s.logger.Warn("authorization refused - OTP trust expired", zap.Uint("user_id", claims.UserID))
		}
		return nil, ErrOTPTrustExpired
	}

	return claims, nil
}

func (s *Service) RequireAdmin(token string) (*jwt.Claims, error) {
	claims, err := s.AuthorizeWithOTPTrust(token)
	if err != nil {
		return nil, err
	}

	if !claims.Admin {
		if s.logger != nil {
			s.logger.Warn("authorization refused - not admin", zap.Uint("user_id", claims.UserID))
		}
		return nil, ErrNotAdmin
	}

	return claims, nil
}

// Logout flips the account's revocation switch. Every outstanding token for
// the account fails its next Authorize, regardless of its own expiry.
func (s *Service) Logout(userID uint) error {
	if err := s.users.SetLoggedOut(userID, true); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("logout completed", zap.Uint("user_id", userID))
	}
	return nil
}

// RemainingAccessTTL exposes the codec helper for step-up callers.
func (s *Service) RemainingAccessTTL(claims *jwt.Claims) time.Duration {
	return s.tokens.RemainingAccessTTL(claims)
}
