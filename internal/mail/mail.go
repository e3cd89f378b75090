package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gomail "github.com/wneessen/go-mail"

	"concord/internal/config"
)

// Sender delivers transactional mail over SMTP. A zero-configured instance
// (empty server) logs instead of sending, which keeps local development
// working without a relay.
type Sender struct {
	client *gomail.Client
	from   string
	log    *slog.Logger
}

func NewSender(cfg config.MailConfig, log *slog.Logger) (*Sender, error) {
	if cfg.SMTPServer == "" {
		return &Sender{from: cfg.Mbox, log: log}, nil
	}

	host, port, err := splitServer(cfg.SMTPServer, cfg.TLS)
	if err != nil {
		return nil, err
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	}
	if cfg.TLS == "starttls" {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithSSLPort(false))
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &Sender{client: client, from: cfg.Mbox, log: log}, nil
}

func splitServer(server, tlsMode string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		// No port in the address; pick the conventional one.
		if tlsMode == "starttls" {
			return server, 587, nil
		}
		return server, 465, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("mail server port: %w", err)
	}
	return host, port, nil
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s.client == nil {
		s.log.Info("mail suppressed, no smtp server configured",
			slog.String("to", to), slog.String("subject", subject), slog.String("body", body))
		return nil
	}
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}
