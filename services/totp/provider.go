package totp

import (
	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, users *user.Service, logger *logging.Service) *Service {
	return NewService(cfg, users, logger)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
