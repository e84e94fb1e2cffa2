package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	"time"

	"github.com/authmesh/authcore/config"
	"github.com/authmesh/authcore/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Service struct {
	config    *config.MailConfig
	appName   string
	client    *mail.Client
	templates *htmlTemplate.Template
	logger    *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	mailCfg := &cfg.Mail

	if mailCfg.FromAddress == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(mailCfg.Port),
	}

	switch mailCfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if mailCfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(mailCfg.Username))
	}
	if mailCfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(mailCfg.Password))
	}

	client, err := mail.NewClient(mailCfg.Host, clientOpts...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", mailCfg.Host),
				zap.Int("port", mailCfg.Port))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	service := &Service{
		config:  mailCfg,
		appName: cfg.App.Name,
		client:  client,
		logger:  logger,
	}

	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized",
			zap.String("host", mailCfg.Host),
			zap.Int("port", mailCfg.Port),
			zap.String("from_address", mailCfg.FromAddress))
	}
	return service, nil
}

// loadTemplates parses the builtin bodies first, then overlays any *.html
// files from the configured directory so deployments can rebrand them.
func (s *Service) loadTemplates() error {
	templates, err := htmlTemplate.New("mail").Parse("")
	if err != nil {
		return err
	}

	for name, body := range builtinTemplates {
		if _, err := templates.New(name).Parse(body); err != nil {
			return fmt.Errorf("failed to parse builtin template %s: %w", name, err)
		}
	}

	if s.config.TemplatesDir != "" {
		pattern := filepath.Join(s.config.TemplatesDir, "*.html")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad template pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			if templates, err = templates.ParseFiles(matches...); err != nil {
				return fmt.Errorf("failed to parse templates from %s: %w", s.config.TemplatesDir, err)
			}
		}
	}

	s.templates = templates
	return nil
}

// Render executes a named template to a string, for callers that need the
// HTML outside an email (the reset confirmation page).
func (s *Service) Render(templateName string, data map[string]any) (string, error) {
	tmpl := s.templates.Lookup(templateName + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown mail template: %s", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *Service) NewMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	return message, nil
}

func (s *Service) Send(to []string, subject, htmlBody string) error {
	message, err := s.NewMessage()
	if err != nil {
		return err
	}

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextHTML, htmlBody)

	startTime := time.Now()
	if err := s.client.DialAndSend(message); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", time.Since(startTime)))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent",
			zap.String("subject", subject),
			zap.Duration("send_duration", time.Since(startTime)))
	}
	return nil
}

func (s *Service) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	if s.logger != nil {
		s.logger.Info("sending template email",
			zap.String("template", templateName),
			zap.Strings("recipients", to))
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["AppName"]; !ok {
		data["AppName"] = s.appName
	}

	body, err := s.Render(templateName, data)
	if err != nil {
		return err
	}

	return s.Send(to, subject, body)
}
