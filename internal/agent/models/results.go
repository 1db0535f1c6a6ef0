package models

import "fmt"

// Result is the closed set of structured tool outputs. Only types in this
// package implement it.
type Result interface {
	// Text is the human readable summary copied into Observation.OutputText.
	Text() string
	// Kind names the variant for logs and persisted history.
	Kind() string
	isResult()
}

// Lead is one business contact produced by a lead source.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Niche   string `json:"niche,omitempty"`
	Source  string `json:"source"`
}

// LeadsFound is produced by the lead search tool.
type LeadsFound struct {
	Leads     []Lead `json:"leads"`
	Location  string `json:"location"`
	WithEmail int    `json:"with_email"`
	Saved     int    `json:"saved"`
	Summary   string `json:"summary,omitempty"`
}

func (r LeadsFound) Text() string {
	if r.Summary != "" {
		return r.Summary
	}
	return fmt.Sprintf("Found %d leads in %s. %d new leads added (%d with verified emails).",
		len(r.Leads), r.Location, r.Saved, r.WithEmail)
}
func (LeadsFound) Kind() string { return "leads_found" }
func (LeadsFound) isResult()    {}

// PitchCreated is produced by the pitch personalisation tool.
type PitchCreated struct {
	LeadName string `json:"lead_name"`
	Niche    string `json:"niche"`
	Pitch    string `json:"pitch"`
}

func (r PitchCreated) Text() string {
	return "Personalized pitch generated for " + r.LeadName
}
func (PitchCreated) Kind() string { return "pitch_created" }
func (PitchCreated) isResult()    {}

// DeliveryStatus distinguishes full, partial and simulated delivery.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryPartial   DeliveryStatus = "partial"
	DeliverySimulated DeliveryStatus = "simulated"
)

// EmailSent is produced by the email tool.
type EmailSent struct {
	Delivery   DeliveryStatus `json:"status"`
	Recipients []string       `json:"recipients"`
	Sent       int            `json:"sent"`
	Transport  string         `json:"transport,omitempty"`
	Summary    string         `json:"summary,omitempty"`
}

func (r EmailSent) Text() string {
	if r.Summary != "" {
		return r.Summary
	}
	switch r.Delivery {
	case DeliverySimulated:
		return fmt.Sprintf("Email simulation: Would send to %v", r.Recipients)
	case DeliveryPartial:
		return fmt.Sprintf("Sent %d/%d emails", r.Sent, len(r.Recipients))
	}
	return fmt.Sprintf("Email sent successfully to %d recipient(s)", r.Sent)
}
func (EmailSent) Kind() string { return "email_sent" }
func (EmailSent) isResult()    {}

// FileRead is produced by the file tool.
type FileRead struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (r FileRead) Text() string {
	return fmt.Sprintf("File read successfully: %d characters", len(r.Content))
}
func (FileRead) Kind() string { return "file_read" }
func (FileRead) isResult()    {}
