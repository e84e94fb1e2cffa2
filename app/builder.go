package app

import (
	"fmt"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/database"
	"github.com/authmesh/authcore/services/auth"
	"github.com/authmesh/authcore/services/jwt"
	"github.com/authmesh/authcore/services/logging"
	"github.com/authmesh/authcore/services/mail"
	"github.com/authmesh/authcore/services/session"
	"github.com/authmesh/authcore/services/totp"
	"github.com/authmesh/authcore/services/user"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

// WithAuth enables the full credential stack: accounts, password auth, the
// token codec, TOTP and the session gates. The account models are migrated
// automatically.
func (b *AppBuilder) WithAuth() *AppBuilder {
	b.services["auth"] = true
	if !b.services["database"] {
		b.WithDatabase(user.Models()...)
	}
	return b
}

func (b *AppBuilder) WithMail() *AppBuilder {
	b.services["mail"] = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	fxOptions := b.buildFxOptions(logger)

	if b.services["database"] {
		fxOptions = append(fxOptions, fx.Invoke(func(db *gorm.DB) {
			app.db = db
		}))
	}
	if b.services["auth"] {
		fxOptions = append(fxOptions, fx.Invoke(func(sessions *session.Service) {
			app.sessions = sessions
		}))
	}

	app.fx = fx.New(fxOptions...)

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.services["mail"] && !b.services["auth"] {
		return fmt.Errorf("mail requires auth support")
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(b.config.Log)
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	var options []fx.Option

	options = append(options,
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.NopLogger,
	)

	if b.services["database"] {
		modelsOpt := &database.ModelsOption{}
		if len(b.models) > 0 {
			modelsOpt = database.WithModels(b.models...)
		}
		options = append(options,
			fx.Supply(modelsOpt),
			database.Module,
		)
	}

	if b.services["auth"] {
		options = append(options,
			user.Module,
			jwt.Module,
			totp.Module,
			auth.Module,
			session.Module,
		)
	}
	if b.services["mail"] {
		options = append(options, mail.Module)
	}

	options = append(options, b.fxOptions...)

	return options
}
