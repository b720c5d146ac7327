package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/idea-comb/app/database"
)

var validCadences = map[string]bool{
	database.CadenceRealtime: true,
	database.CadenceHourly:   true,
	database.CadenceDaily:    true,
}

type ConfigCache struct {
	workspacesDir string
	cache         map[string]*Config
	mu            sync.RWMutex
}

func NewConfigCache(workspacesDir string) *ConfigCache {
	return &ConfigCache{
		workspacesDir: workspacesDir,
		cache:         make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.workspacesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.workspacesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		if config.BotToken == "" {
			slog.Warn("Workspace has no bot token, syncs will fail", "workspace", name)
		}
		slog.Debug("Configuration loaded", "workspace", name, "id", config.ID, "channels", len(config.Channels))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	configFile := cc.getConfigFilePath(name)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = name

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	for otherName, other := range cc.cache {
		if otherName != name && other.ID == config.ID {
			return nil, fmt.Errorf("invalid config %s: workspace id %s already defined in %s", configFile, config.ID, otherName)
		}
	}
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("workspace config with name '%s' not found", name)
	}
	return config, nil
}

// GetConfigs returns the loaded configs ordered by workspace id.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, config := range cc.cache {
		configs = append(configs, config)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.BotToken = strings.TrimSpace(os.ExpandEnv(config.BotToken))

	for i := range config.Channels {
		if config.Channels[i].Cadence == "" {
			config.Channels[i].Cadence = database.CadenceHourly
		}
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.ID == "" {
		return fmt.Errorf("workspace id is required")
	}

	seen := make(map[string]bool, len(config.Channels))
	for i, channel := range config.Channels {
		if channel.ID == "" {
			return fmt.Errorf("channel id is required at index %d", i)
		}
		if seen[channel.ID] {
			return fmt.Errorf("duplicate channel id at index %d: %s", i, channel.ID)
		}
		seen[channel.ID] = true

		if !validCadences[channel.Cadence] {
			return fmt.Errorf("invalid cadence at index %d: %s", i, channel.Cadence)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(name string) string {
	return filepath.Join(cc.workspacesDir, name+".yml")
}
