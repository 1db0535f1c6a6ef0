package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/wneessen/go-mail"
)

// session is the part of *mail.Client used once connected.
type session interface {
	Send(msgs ...*mail.Msg) error
	Close() error
}

// SMTP sends one message per recipient over a single connection, so a bad
// address only costs that recipient.
type SMTP struct {
	From string
	dial func(ctx context.Context) (session, error)
}

// NewSMTP builds the relay transport from cfg.
func NewSMTP(cfg config.EmailConfig) *SMTP {
	from := cfg.FromEmail
	if from == "" {
		from = cfg.SMTP.Username
	}
	s := cfg.SMTP
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTP{
		From: from,
		dial: func(ctx context.Context) (session, error) {
			opts := []mail.Option{mail.WithPort(s.Port), mail.WithTimeout(timeout)}
			if s.StartTLS {
				opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
			} else {
				opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
			}
			if s.Username != "" {
				opts = append(opts,
					mail.WithSMTPAuth(mail.SMTPAuthPlain),
					mail.WithUsername(s.Username),
					mail.WithPassword(s.Password),
				)
			}
			c, err := mail.NewClient(s.Host, opts...)
			if err != nil {
				return nil, fmt.Errorf("smtp client: %w", err)
			}
			if err := c.DialWithContext(ctx); err != nil {
				return nil, fmt.Errorf("smtp dial %s:%d: %w", s.Host, s.Port, err)
			}
			return c, nil
		},
	}
}

func (*SMTP) Name() string { return "smtp" }

func (s *SMTP) Deliver(ctx context.Context, msg Message) (Delivery, error) {
	sess, err := s.dial(ctx)
	if err != nil {
		return Delivery{}, err
	}
	defer sess.Close()

	var (
		sent []string
		errs []error
	)
	for _, rcpt := range msg.To {
		m, err := s.build(msg, rcpt)
		if err == nil {
			err = sess.Send(m)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rcpt, err))
			continue
		}
		sent = append(sent, rcpt)
	}
	if len(sent) == 0 {
		return Delivery{}, errors.Join(errs...)
	}
	d := Delivery{Sent: len(sent), Total: len(msg.To)}
	if len(sent) == len(msg.To) {
		d.Status = models.DeliverySent
		d.Summary = fmt.Sprintf("Email sent successfully to %d recipient(s): %s", len(sent), strings.Join(sent, ", "))
	} else {
		d.Status = models.DeliveryPartial
		d.Summary = fmt.Sprintf("Sent %d/%d emails", len(sent), len(msg.To))
	}
	return d, nil
}

func (s *SMTP) build(msg Message, rcpt string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.SenderName, s.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", s.From, err)
	}
	if err := m.To(rcpt); err != nil {
		return nil, fmt.Errorf("to %q: %w", rcpt, err)
	}
	if addr := replyAddress(msg.ReplyTo); addr != "" {
		if err := m.ReplyTo(addr); err != nil {
			return nil, fmt.Errorf("reply-to %q: %w", addr, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
