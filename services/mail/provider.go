package mail

import (
	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/auth"
	"github.com/authmesh/authcore/services/logging"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(cfg, logger)
}

func wireAuthMail(authSvc *auth.Service, mailSvc *Service) {
	authSvc.SetMailService(mailSvc)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
	fx.Invoke(wireAuthMail),
)
