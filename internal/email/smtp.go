package email

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/turicert/cert-api/internal/config"
	"github.com/turicert/cert-api/pkg/circuitbreaker"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	cb     *circuitbreaker.CircuitBreaker
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", content)

	if err := s.cb.Execute(func() error { return s.dialer.DialAndSend(msg) }); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
