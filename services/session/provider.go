package session

import (
	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/auth"
	"github.com/authmesh/authcore/services/jwt"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/totp"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, users *user.Service, authSvc *auth.Service, tokens *jwt.Service, otp *totp.Service, logger *logging.Service) *Service {
	return NewService(cfg, users, authSvc, tokens, otp, logger)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
