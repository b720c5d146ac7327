package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./idea-comb.db" description:"SQLite database file"`

	// Application configuration
	WorkspacesDir     string `long:"workspaces-dir" env:"WORKSPACES_DIR" default:"./workspaces" description:"Directory containing workspace configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://ideas.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SyncSecret        string `long:"sync-secret" env:"SYNC_SECRET" description:"Bearer secret required by the /sync endpoint (optional)"`
	IndexPath         string `long:"index-path" env:"INDEX_PATH" description:"Search index directory (in-memory when empty)"`

	// Slack configuration
	SlackSigningSecret string `long:"slack-signing-secret" env:"SLACK_SIGNING_SECRET" description:"Signing secret used to verify webhook requests"`
	SlackAPIURL        string `long:"slack-api-url" env:"SLACK_API_URL" description:"Override for the Slack Web API base URL"`

	// Sync policy
	SyncMinLength        int `long:"sync-min-length" env:"SYNC_MIN_LENGTH" default:"50" description:"Minimum message length accepted by scheduled and manual syncs"`
	WebhookMinLength     int `long:"webhook-min-length" env:"WEBHOOK_MIN_LENGTH" default:"10" description:"Minimum message length stored from webhook events"`
	MaxPages             int `long:"max-pages" env:"MAX_PAGES" default:"5" description:"Maximum history pages fetched per channel and run"`
	PacingDelay          int `long:"pacing-delay" env:"PACING_DELAY" default:"1000" description:"Delay between channels of one workspace in milliseconds"`
	WorkspaceConcurrency int `long:"workspace-concurrency" env:"WORKSPACE_CONCURRENCY" default:"1" description:"Number of workspaces synced in parallel"`
	SyncTimeout          int `long:"sync-timeout" env:"SYNC_TIMEOUT" default:"120" description:"Timeout of a manual sync request in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Idea Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:               raw.DBPath,
		WorkspacesDir:        raw.WorkspacesDir,
		Port:                 raw.Port,
		BaseUrl:              raw.BaseUrl,
		WorkerCount:          raw.WorkerCount,
		SchedulerInterval:    raw.SchedulerInterval,
		APIAccessKey:         raw.APIAccessKey,
		SyncSecret:           raw.SyncSecret,
		IndexPath:            raw.IndexPath,
		SlackSigningSecret:   raw.SlackSigningSecret,
		SlackAPIURL:          raw.SlackAPIURL,
		SyncMinLength:        raw.SyncMinLength,
		WebhookMinLength:     raw.WebhookMinLength,
		MaxPages:             raw.MaxPages,
		PacingDelay:          time.Duration(raw.PacingDelay) * time.Millisecond,
		WorkspaceConcurrency: raw.WorkspaceConcurrency,
		SyncTimeout:          time.Duration(raw.SyncTimeout) * time.Second,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	nonNegativeFields := map[string]int{
		"sync min length":    c.SyncMinLength,
		"webhook min length": c.WebhookMinLength,
		"pacing delay":       int(c.PacingDelay),
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	positiveFields := map[string]int{
		"worker count":          c.WorkerCount,
		"scheduler interval":    c.SchedulerInterval,
		"max pages":             c.MaxPages,
		"workspace concurrency": c.WorkspaceConcurrency,
		"sync timeout":          int(c.SyncTimeout),
	}
	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
