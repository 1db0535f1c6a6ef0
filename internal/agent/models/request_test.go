package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGoalTags(t *testing.T) {
	cases := []struct {
		raw    string
		action ActionKind
		niche  string
		goal   string
	}{
		{"[leads] find solar companies", ActionLeads, "", "find solar companies"},
		{"[LEADS]find solar companies", ActionLeads, "", "find solar companies"},
		{"[Email] follow up with Sarah", ActionEmail, "", "follow up with Sarah"},
		{"  [email]ping the team", ActionEmail, "", "ping the team"},
		{"find companies [NICHE:Security Services] in Durban", ActionAuto, "Security Services", "find companies in Durban"},
		{"send a note about [leads]", ActionAuto, "", "send a note about [leads]"},
	}
	for _, tc := range cases {
		req := ParseGoal(tc.raw)
		assert.Equal(t, tc.action, req.Action, tc.raw)
		assert.Equal(t, tc.niche, req.Niche, tc.raw)
		assert.Equal(t, tc.goal, req.Goal, tc.raw)
	}
}

func TestMergePrefersExplicitValues(t *testing.T) {
	req := ParseGoal("[email] hello [niche:Retail]").Merge(ActionLeads, "", "me@x.co")
	assert.Equal(t, ActionLeads, req.Action)
	assert.Equal(t, "Retail", req.Niche)
	assert.Equal(t, "me@x.co", req.Recipient)

	req = req.Merge(ActionAuto, "Solar", "")
	assert.Equal(t, ActionLeads, req.Action)
	assert.Equal(t, "Solar", req.Niche)
}
