package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Controller.MaxSteps)
	assert.Equal(t, 2, cfg.Controller.MaxRetriesPerTool)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.StaleLockAfter)
	assert.Equal(t, "automation.queued", cfg.Storage.Redis.Stream)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr())
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", cfg.Email.SendGrid.Endpoint)
	assert.Equal(t, 587, cfg.Email.SMTP.Port)
	assert.NotEmpty(t, cfg.Worker.Consumer)
	assert.Contains(t, cfg.Leads.SkipDomains, "facebook.com")
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
controller:
  max_steps: 6
scheduler:
  interval: 1m
leads:
  provider: Brave
  skip_domains: ["WWW.Facebook.com", "https://yelp.com/biz"]
`), 0o600))

	t.Setenv("SALESAGENT_CONTROLLER_MAX_RETRIES_PER_TOOL", "5")
	t.Setenv("SENDGRID_API_KEY", "sg-key")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/x")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Controller.MaxSteps)
	assert.Equal(t, 5, cfg.Controller.MaxRetriesPerTool)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, "brave", cfg.Leads.Provider)
	assert.Equal(t, []string{"facebook.com", "yelp.com"}, cfg.Leads.SkipDomains)
	assert.Equal(t, "sg-key", cfg.Email.SendGrid.APIKey)
	assert.Equal(t, "postgres://u:p@db/x", cfg.Storage.Postgres.URL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("leads:\n  provider: bing\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "leads.provider")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLeadsSkips(t *testing.T) {
	cfg := LeadsConfig{SkipDomains: []string{"facebook.com"}}.Normalize()
	assert.True(t, cfg.Skips("m.facebook.com"))
	assert.True(t, cfg.Skips("https://www.facebook.com/acme"))
	assert.False(t, cfg.Skips("acmefacebook.co.za"))
	assert.Equal(t, 15, cfg.MaxResults)
}

func TestSectionValidation(t *testing.T) {
	assert.Error(t, ControllerConfig{}.Validate())
	assert.Error(t, SchedulerConfig{Interval: time.Second, StaleLockAfter: time.Minute, TickLock: true}.Validate())
	assert.NoError(t, PostgresConfig{URL: "postgres://x"}.Validate())
	assert.Error(t, PostgresConfig{Host: "h", Port: "1"}.Validate())
	assert.Error(t, EmailConfig{SMTP: SMTPConfig{Password: "p"}}.Validate())
}
