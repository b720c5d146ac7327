package workspace

type Config struct {
	Name        string          `yaml:"-"` // Derived from filename (without .yml extension)
	ID          string          `yaml:"id"`
	DisplayName string          `yaml:"name"`
	BotToken    string          `yaml:"bot_token"` // supports ${ENV} expansion
	Channels    []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Cadence     string `yaml:"cadence"` // realtime, hourly or daily
	Enabled     *bool  `yaml:"enabled"`
	AutoApprove bool   `yaml:"auto_approve"`
}

func (c ChannelConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
