package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	WorkspacesDir     string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	SyncSecret        string
	IndexPath         string

	// Slack configuration
	SlackSigningSecret string
	SlackAPIURL        string

	// Sync policy
	SyncMinLength        int
	WebhookMinLength     int
	MaxPages             int
	PacingDelay          time.Duration
	WorkspaceConcurrency int
	SyncTimeout          time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
