package deepsearch

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/fouille/deepsearch/internal/provider"
)

// Config holds the deep search pipeline configuration.
type Config struct {
	UserAgent        string          `yaml:"user_agent"`
	FetchTimeout     time.Duration   `yaml:"fetch_timeout"`
	MaxFetchBytes    int64           `yaml:"max_fetch_bytes"`
	ArchiveDir       string          `yaml:"archive_dir"` // empty disables archiving
	RobotsMaxEntries int             `yaml:"robots_max_entries"`
	Engine           provider.Engine `yaml:"engine"`
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "fouille/1.0"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 8 * time.Second
	}
	if c.Engine.ID == "" {
		c.Engine = defaultEngine()
	}
}

// defaultEngine targets the Brave Search API; BRAVE_API_KEY is
// expanded from the environment at request time.
func defaultEngine() provider.Engine {
	return provider.Engine{
		ID:          "brave",
		Name:        "Brave Search",
		Strategy:    "api",
		URLTemplate: "https://api.search.brave.com/res/v1/web/search?q={query}&count={count}",
		APIConfig: provider.Config{
			Headers: map[string]string{
				"X-Subscription-Token": "${BRAVE_API_KEY}",
			},
			ResultPath: "web.results",
			Fields: map[string]string{
				"title": "title",
				"text":  "description",
				"url":   "url",
			},
		},
		RateLimit: 1,
		Enabled:   true,
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
