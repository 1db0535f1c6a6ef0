package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (SALESAGENT_*).
const EnvPrefix = "SALESAGENT"

// Config holds all configuration for the sales agent processes
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Controller ControllerConfig `mapstructure:"controller"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Email      EmailConfig      `mapstructure:"email"`
	Leads      LeadsConfig      `mapstructure:"leads"`
	Files      FilesConfig      `mapstructure:"files"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

// ControllerConfig bounds a single agent run.
type ControllerConfig struct {
	MaxSteps          int `mapstructure:"max_steps"`
	MaxRetriesPerTool int `mapstructure:"max_retries_per_tool"`
}

func (c ControllerConfig) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("controller.max_steps must be > 0")
	}
	if c.MaxRetriesPerTool <= 0 {
		return fmt.Errorf("controller.max_retries_per_tool must be > 0")
	}
	return nil
}

// SchedulerConfig controls the dispatch loop.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	StaleLockAfter time.Duration `mapstructure:"stale_lock_after"`
	BatchSize      int           `mapstructure:"batch_size"`
	TickLock       bool          `mapstructure:"tick_lock"`
	TickLockKey    string        `mapstructure:"tick_lock_key"`
}

func (s SchedulerConfig) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be > 0")
	}
	if s.StaleLockAfter <= 0 {
		return fmt.Errorf("scheduler.stale_lock_after must be > 0")
	}
	if s.TickLock && strings.TrimSpace(s.TickLockKey) == "" {
		return fmt.Errorf("scheduler.tick_lock_key required when tick_lock is enabled")
	}
	return nil
}

// WorkerConfig controls the stream consumer that executes automations.
type WorkerConfig struct {
	Group          string        `mapstructure:"group"`
	Consumer       string        `mapstructure:"consumer"`
	Concurrency    int           `mapstructure:"concurrency"`
	BlockTimeout   time.Duration `mapstructure:"block_timeout"`
	ClaimIdle      time.Duration `mapstructure:"claim_idle"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// Normalize fills the consumer name from the hostname when unset.
func (w WorkerConfig) Normalize() WorkerConfig {
	if strings.TrimSpace(w.Consumer) == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		w.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 1
	}
	return w
}

func (w WorkerConfig) Validate() error {
	if strings.TrimSpace(w.Group) == "" {
		return fmt.Errorf("worker.group required")
	}
	if w.RunTimeout <= 0 {
		return fmt.Errorf("worker.run_timeout must be > 0")
	}
	return nil
}

// TelemetryConfig contains telemetry and health endpoint settings
type TelemetryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServiceName   string `mapstructure:"service_name"`
	HealthAddress string `mapstructure:"health_address"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && strings.TrimSpace(t.HealthAddress) == "" {
		return fmt.Errorf("telemetry.health_address required when telemetry is enabled")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Stream   string        `mapstructure:"stream"`
}

// Addr joins host and port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	if strings.TrimSpace(r.Stream) == "" {
		return fmt.Errorf("storage.redis.stream required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// EmailConfig configures the notifier transports. SendGrid wins over SMTP
// when both are configured; neither means simulated delivery.
type EmailConfig struct {
	FromEmail string         `mapstructure:"from_email"`
	FromName  string         `mapstructure:"from_name"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	SendGrid  SendGridConfig `mapstructure:"sendgrid"`
	SMTP      SMTPConfig     `mapstructure:"smtp"`
}

// SendGridConfig holds the v3 mail send API settings.
type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Endpoint  string `mapstructure:"endpoint"`
	FromEmail string `mapstructure:"from_email"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	StartTLS bool   `mapstructure:"starttls"`
}

func (e EmailConfig) Validate() error {
	if strings.TrimSpace(e.SMTP.Password) != "" {
		if strings.TrimSpace(e.SMTP.Host) == "" {
			return fmt.Errorf("email.smtp.host required when smtp password is set")
		}
		if e.SMTP.Port <= 0 {
			return fmt.Errorf("email.smtp.port must be > 0")
		}
	}
	return nil
}

// FilesConfig confines the read_file tool.
type FilesConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	MaxSize int64  `mapstructure:"max_size"`
}

// legacyEnv maps keys to the unprefixed variable names older deployments set.
var legacyEnv = map[string][]string{
	"storage.postgres.url":      {"DATABASE_URL"},
	"email.from_email":          {"EMAIL_SENDER"},
	"email.smtp.username":       {"EMAIL_SENDER"},
	"email.smtp.password":       {"EMAIL_PASSWORD"},
	"email.sendgrid.api_key":    {"SENDGRID_API_KEY"},
	"email.sendgrid.from_email": {"SENDGRID_FROM_EMAIL"},
	"leads.serper_api_key":      {"SERPER_API_KEY"},
	"leads.brave_api_key":       {"BRAVE_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_pretty", false)

	v.SetDefault("controller.max_steps", 10)
	v.SetDefault("controller.max_retries_per_tool", 2)

	v.SetDefault("scheduler.interval", 30*time.Second)
	v.SetDefault("scheduler.stale_lock_after", 10*time.Minute)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.tick_lock", true)
	v.SetDefault("scheduler.tick_lock_key", "salesagent:scheduler:tick")

	v.SetDefault("worker.group", "automation-workers")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.block_timeout", 5*time.Second)
	v.SetDefault("worker.claim_idle", 15*time.Minute)
	v.SetDefault("worker.run_timeout", 10*time.Minute)
	v.SetDefault("worker.idempotency_ttl", 24*time.Hour)

	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.redis.stream", "automation.queued")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.dbname", "salesagent")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timeout", 5*time.Second)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "salesagent")
	v.SetDefault("telemetry.health_address", ":9090")

	v.SetDefault("email.from_name", "AI Sales Agent")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.sendgrid.endpoint", "https://api.sendgrid.com/v3/mail/send")
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.starttls", true)

	v.SetDefault("leads.provider", "serper")
	v.SetDefault("leads.max_results", 15)
	v.SetDefault("leads.queries_per_niche", 4)
	v.SetDefault("leads.timeout", 10*time.Second)
	v.SetDefault("leads.scrape_pages", true)
	v.SetDefault("leads.skip_domains", DefaultSkipDomains)
	v.SetDefault("leads.priority_prefixes", DefaultPriorityPrefixes)

	v.SetDefault("files.base_dir", ".")
	v.SetDefault("files.max_size", 1<<20)
}

// Load reads configuration from path (or the default search paths when
// empty), a .env file in the working directory, and SALESAGENT_* variables.
func Load(path string) (*Config, error) {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Worker = cfg.Worker.Normalize()
	cfg.Leads = cfg.Leads.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []func() error{
		c.Controller.Validate,
		c.Scheduler.Validate,
		c.Worker.Validate,
		c.Storage.Redis.Validate,
		c.Storage.Postgres.Validate,
		c.Telemetry.Validate,
		c.Email.Validate,
		c.Leads.Validate,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}
