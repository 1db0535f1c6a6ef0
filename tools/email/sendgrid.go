package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
)

const SendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGrid posts to the v3 mail send API.
type SendGrid struct {
	APIKey    string
	Endpoint  string
	FromEmail string
	Client    *http.Client
}

func (*SendGrid) Name() string { return "sendgrid" }

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress   `json:"from"`
	Subject string      `json:"subject"`
	Content []sgContent `json:"content"`
	ReplyTo *sgAddress  `json:"reply_to,omitempty"`
}

func (s *SendGrid) Deliver(ctx context.Context, msg Message) (Delivery, error) {
	var p sgPayload
	p.Personalizations = make([]struct {
		To []sgAddress `json:"to"`
	}, 1)
	for _, to := range msg.To {
		p.Personalizations[0].To = append(p.Personalizations[0].To, sgAddress{Email: to})
	}
	p.From = sgAddress{Email: s.FromEmail, Name: msg.SenderName}
	p.Subject = msg.Subject
	p.Content = []sgContent{{Type: "text/plain", Value: msg.Text}}
	if msg.HTML != "" {
		p.Content = append(p.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}
	if addr := replyAddress(msg.ReplyTo); addr != "" {
		p.ReplyTo = &sgAddress{Email: addr}
	}

	body, err := json.Marshal(p)
	if err != nil {
		return Delivery{}, err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = SendGridEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Delivery{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Delivery{}, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return Delivery{
		Status:  models.DeliverySent,
		Sent:    len(msg.To),
		Total:   len(msg.To),
		Summary: fmt.Sprintf("Email sent successfully to %d recipient(s) via SendGrid", len(msg.To)),
	}, nil
}
