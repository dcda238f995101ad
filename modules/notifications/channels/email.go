package channels

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/ipsco/fleet/modules/notifications/domain/notification"
)

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	mailer Mailer
	from   string
	host   string
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		mailer: gomail.NewDialer(host, port, user, password),
		from:   from,
		host:   host,
	}
}

// NewEmailSenderWithMailer is NewEmailSender over an existing transport.
func NewEmailSenderWithMailer(mailer Mailer, from string) *EmailSender {
	return &EmailSender{mailer: mailer, from: from}
}

func (s *EmailSender) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send ignores ctx once the SMTP exchange has started; the dispatcher bounds
// the wait.
func (s *EmailSender) Send(ctx context.Context, address string, msg notification.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", msg.Body)

	if err := s.mailer.DialAndSend(m); err != nil {
		return "", err
	}
	if s.host != "" {
		return "accepted by " + s.host, nil
	}
	return "accepted", nil
}
