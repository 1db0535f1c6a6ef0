package models

import (
	"regexp"
	"strings"
)

var (
	actionTag = regexp.MustCompile(`(?i)^\[(email|leads)\]\s*`)
	nicheTag  = regexp.MustCompile(`(?i)\[niche:([^\]]+)\]`)
)

// Request is the structured form of a user goal.
type Request struct {
	Goal      string
	Action    ActionKind
	Niche     string
	Recipient string
}

// ParseGoal accepts the tagged goal syntax stored by older clients
// ("[leads] find companies [niche:Solar Energy]") and returns the plain goal
// with the tags lifted into typed fields.
func ParseGoal(raw string) Request {
	req := Request{Action: ActionAuto}
	goal := strings.TrimSpace(raw)
	if m := actionTag.FindStringSubmatch(goal); m != nil {
		req.Action = ActionEmail
		if strings.EqualFold(m[1], "leads") {
			req.Action = ActionLeads
		}
		goal = goal[len(m[0]):]
	}
	if m := nicheTag.FindStringSubmatch(goal); m != nil {
		req.Niche = strings.TrimSpace(m[1])
		goal = nicheTag.ReplaceAllString(goal, "")
	}
	req.Goal = strings.Join(strings.Fields(goal), " ")
	return req
}

// Merge overlays explicit fields onto a parsed request. Explicit values win.
func (r Request) Merge(action ActionKind, niche, recipient string) Request {
	if action != "" && action != ActionAuto {
		r.Action = action
	}
	if niche != "" {
		r.Niche = niche
	}
	if recipient != "" {
		r.Recipient = recipient
	}
	return r
}
