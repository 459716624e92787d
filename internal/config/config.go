package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"markethealth/internal/catalog"
	"markethealth/lib/configutil"

	"github.com/joho/godotenv"
)

type ChartinkConfig struct {
	BaseUrl           string  `json:"base_url"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

func (c ChartinkConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type WorkbookConfig struct {
	Path string `json:"path"`
}

type GithubConfig struct {
	ApiUrl string `json:"api_url"`
	Token  string `json:"token"`
	// Repo is "<owner>/<name>".
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	// Path is the path of the workbook inside the repo.
	Path string `json:"path"`
}

// Enabled is false when there is nowhere to publish to.
func (c GithubConfig) Enabled() bool {
	return c.Token != "" && c.Repo != ""
}

type ScheduleConfig struct {
	Cron              string   `json:"cron"`
	Timezone          string   `json:"timezone"`
	Open              string   `json:"open"`
	Close             string   `json:"close"`
	Holidays          []string `json:"holidays"`
	IgnoreMarketHours bool     `json:"ignore_market_hours"`
}

type RetryConfig struct {
	MaxRetries             int `json:"max_retries"`
	InitialIntervalSeconds int `json:"initial_interval_seconds"`
	MaxIntervalSeconds     int `json:"max_interval_seconds"`
	// BreakerThreshold is the number of failed batches in a row that opens
	// the breaker.
	BreakerThreshold       int `json:"breaker_threshold"`
	BreakerCooldownMinutes int `json:"breaker_cooldown_minutes"`
}

type StatusConfig struct {
	Port int `json:"port"`
}

type SlackConfig struct {
	WebhookUrl string `json:"webhook_url"`
}

type Config struct {
	Chartink ChartinkConfig  `json:"chartink"`
	Queries  []catalog.Query `json:"queries"`
	Workbook WorkbookConfig  `json:"workbook"`
	Github   GithubConfig    `json:"github"`
	Schedule ScheduleConfig  `json:"schedule"`
	Retry    RetryConfig     `json:"retry"`
	Database string          `json:"database"`
	Status   StatusConfig    `json:"status"`
	Slack    SlackConfig     `json:"slack"`
}

func Default() Config {
	return Config{
		Chartink: ChartinkConfig{
			BaseUrl:           "https://chartink.com",
			TimeoutSeconds:    15,
			RequestsPerSecond: 0.5,
		},
		Queries: catalog.Defaults,
		Workbook: WorkbookConfig{
			Path: "market_health_data.xlsx",
		},
		Github: GithubConfig{
			ApiUrl: "https://api.github.com",
			Branch: "main",
			Path:   "market_health_data.xlsx",
		},
		Schedule: ScheduleConfig{
			Cron:     "@every 2m",
			Timezone: "Asia/Kolkata",
			Open:     "09:15",
			Close:    "15:30",
		},
		Retry: RetryConfig{
			MaxRetries:             3,
			InitialIntervalSeconds: 10,
			MaxIntervalSeconds:     60,
			BreakerThreshold:       5,
			BreakerCooldownMinutes: 15,
		},
		Database: ".data/markethealth.db",
		Status: StatusConfig{
			Port: 8000,
		},
	}
}

// environment variables that override secrets and deployment specific values
const (
	envGithubToken  = "GITHUB_TOKEN"
	envGithubRepo   = "GITHUB_REPO"
	envGithubBranch = "GITHUB_BRANCH"
	envSlackWebhook = "SLACK_WEBHOOK_URL"
)

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{envGithubToken, &cfg.Github.Token},
		{envGithubRepo, &cfg.Github.Repo},
		{envGithubBranch, &cfg.Github.Branch},
		{envSlackWebhook, &cfg.Slack.WebhookUrl},
	}
	for _, o := range overrides {
		value, ok := lookup(o.key)
		if ok && value != "" {
			*o.target = value
		}
	}
}

// Load reads `path` (and its .local override) if it exists, loads .env into
// the environment, applies environment overrides and fills in defaults.
func Load(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg, os.LookupEnv)

	cfg, err = configutil.WithDefaults(cfg, Default())
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Chartink.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("chartink.timeout_seconds must be positive"))
	}
	if c.Workbook.Path == "" {
		errs = append(errs, fmt.Errorf("workbook.path is required"))
	}
	if c.Schedule.Cron == "" {
		errs = append(errs, fmt.Errorf("schedule.cron is required"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative"))
	}
	if c.Retry.BreakerThreshold <= 0 {
		errs = append(errs, fmt.Errorf("retry.breaker_threshold must be positive"))
	}
	_, err := catalog.New(c.Queries)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Catalog returns the configured queries.
func (c Config) Catalog() (catalog.Catalog, error) {
	return catalog.New(c.Queries)
}
