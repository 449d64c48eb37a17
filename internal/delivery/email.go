package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"gopkg.in/gomail.v2"
)

const adminOTPSubject = "Your Admin Login OTP"

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailGateway sends the admin login code over SMTP.
type EmailGateway struct {
	dialer dialer
	from   string
	ttl    time.Duration
	logger *logrus.Logger
}

// NewEmailGateway builds an SMTP gateway. ttl is only used in the message
// body so the admin knows how long the code lives.
func NewEmailGateway(cfg config.EmailConfig, ttl time.Duration, logger *logrus.Logger) *EmailGateway {
	return &EmailGateway{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		ttl:    ttl,
		logger: logger,
	}
}

func (g *EmailGateway) message(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", g.from, "Admin Panel")
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", adminOTPSubject)

	body := fmt.Sprintf(`
		<h2>Admin Login Verification</h2>
		<p>Your OTP code is:</p>
		<h1 style="letter-spacing: 3px;">%s</h1>
		<p>This OTP will expire in %d minutes.</p>
	`, msg.Code, int(g.ttl.Minutes()))
	m.SetBody("text/html", body)
	return m
}

// Send ignores ctx cancellation once the SMTP dial has started; gomail has
// no context support.
func (g *EmailGateway) Send(ctx context.Context, msg Message) error {
	if g.from == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.dialer.DialAndSend(g.message(msg)); err != nil {
		g.logger.WithError(err).Error("Failed to send OTP email")
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}
