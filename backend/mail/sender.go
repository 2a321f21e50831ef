// Package mail sends the transactional emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"studynotion/backend/apperrors"
)

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer  dialer
	from    string
	timeout time.Duration
}

func NewSMTPSender(host string, port int, user, pass, from string, timeout time.Duration) *SMTPSender {
	return &SMTPSender{
		dialer:  gomail.NewDialer(host, port, user, pass),
		from:    from,
		timeout: timeout,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", apperrors.ErrEmailDelivery, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrEmailDelivery, err)
		}
		return nil
	}
}
