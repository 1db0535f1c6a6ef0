// Package email delivers outbound mail through SendGrid, SMTP or, when
// neither is configured, a simulated transport.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/rs/zerolog"
)

const DefaultSenderName = "AI Sales Agent"

var ErrNoRecipients = errors.New("no recipients")

// Message is one email addressed to one or more recipients.
type Message struct {
	To         []string
	Subject    string
	Text       string
	HTML       string
	SenderName string
	ReplyTo    string
}

// Delivery reports how a message went out.
type Delivery struct {
	Status    models.DeliveryStatus
	Sent      int
	Total     int
	Transport string
	Summary   string
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}

// Transport is one delivery mechanism tried by Mailer.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, msg Message) (Delivery, error)
}

// Mailer tries its transports in order and returns the first success.
type Mailer struct {
	transports []Transport
	log        zerolog.Logger
}

// NewMailer orders the transports SendGrid, then SMTP. Without SMTP
// credentials the last resort is simulated delivery.
func NewMailer(cfg config.EmailConfig, client *http.Client, log zerolog.Logger) *Mailer {
	var ts []Transport
	if cfg.SendGrid.APIKey != "" {
		from := cfg.SendGrid.FromEmail
		if from == "" {
			from = cfg.FromEmail
		}
		ts = append(ts, &SendGrid{
			APIKey:    cfg.SendGrid.APIKey,
			Endpoint:  cfg.SendGrid.Endpoint,
			FromEmail: from,
			Client:    client,
		})
	}
	if cfg.SMTP.Password != "" {
		ts = append(ts, NewSMTP(cfg))
	} else {
		ts = append(ts, Simulated{})
	}
	return NewMailerWith(log, ts...)
}

// NewMailerWith builds a mailer from explicit transports.
func NewMailerWith(log zerolog.Logger, transports ...Transport) *Mailer {
	return &Mailer{transports: transports, log: log}
}

// Transports lists the transport names in the order they are tried.
func (m *Mailer) Transports() []string {
	names := make([]string, 0, len(m.transports))
	for _, t := range m.transports {
		names = append(names, t.Name())
	}
	return names
}

func (m *Mailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	msg, err := prepare(msg)
	if err != nil {
		return Delivery{}, err
	}
	if len(m.transports) == 0 {
		return Delivery{}, fmt.Errorf("no email transport configured")
	}
	var errs []error
	for _, t := range m.transports {
		d, err := t.Deliver(ctx, msg)
		if err == nil {
			d.Transport = t.Name()
			m.log.Info().Str("transport", t.Name()).Int("sent", d.Sent).Int("total", d.Total).
				Str("status", string(d.Status)).Msg("email delivered")
			return d, nil
		}
		m.log.Warn().Err(err).Str("transport", t.Name()).Msg("email transport failed")
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	return Delivery{}, fmt.Errorf("sending email: %w", errors.Join(errs...))
}

// prepare trims recipients and derives a plain text body from HTML when
// only HTML is given.
func prepare(msg Message) (Message, error) {
	var to []string
	for _, r := range msg.To {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if len(to) == 0 {
		return msg, ErrNoRecipients
	}
	msg.To = to
	if msg.SenderName == "" {
		msg.SenderName = DefaultSenderName
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) != "" {
		text, err := md.NewConverter("", true, nil).ConvertString(msg.HTML)
		if err != nil {
			return msg, fmt.Errorf("derive plain text body: %w", err)
		}
		msg.Text = text
	}
	return msg, nil
}

// replyAddress returns the bare address of a reply-to value, or "" when the
// value is a display name rather than an address.
func replyAddress(s string) string {
	addr, err := netmail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Address
}

// SplitRecipients parses a comma separated address list.
func SplitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Simulated pretends to deliver. It is used when no credentials exist.
type Simulated struct{}

func (Simulated) Name() string { return "simulated" }

func (Simulated) Deliver(_ context.Context, msg Message) (Delivery, error) {
	return Delivery{
		Status:  models.DeliverySimulated,
		Total:   len(msg.To),
		Summary: "Email simulation: Would send to " + strings.Join(msg.To, ", "),
	}, nil
}
