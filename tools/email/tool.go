package email

import (
	"context"
	"fmt"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
)

const ToolName = "send_email"

// Spec describes the send_email tool. "to" may hold several comma separated addresses.
func Spec() models.ToolSpec {
	str := map[string]any{"type": "string"}
	return models.ToolSpec{
		Name:        ToolName,
		Description: "Sends an email to one or more recipients",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"to", "subject"},
			"properties": map[string]any{
				"to":          map[string]any{"type": "string", "minLength": 3},
				"subject":     str,
				"body":        str,
				"html_body":   str,
				"sender_name": str,
				"reply_to":    str,
			},
		},
		OutputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"status": str},
		},
		TimeoutSeconds: 30,
	}
}

// NewTool exposes n as the send_email tool.
func NewTool(n Notifier) (*capability.Tool, error) {
	if n == nil {
		return nil, fmt.Errorf("%s: notifier required", ToolName)
	}
	return capability.New(Spec(), func(ctx context.Context, args map[string]any) (models.Result, error) {
		to := SplitRecipients(capability.String(args, "to", ""))
		d, err := n.Send(ctx, Message{
			To:         to,
			Subject:    capability.String(args, "subject", ""),
			Text:       capability.String(args, "body", ""),
			HTML:       capability.String(args, "html_body", ""),
			SenderName: capability.String(args, "sender_name", DefaultSenderName),
			ReplyTo:    capability.String(args, "reply_to", ""),
		})
		if err != nil {
			return nil, err
		}
		return models.EmailSent{
			Delivery:   d.Status,
			Recipients: to,
			Sent:       d.Sent,
			Transport:  d.Transport,
			Summary:    d.Summary,
		}, nil
	})
}
