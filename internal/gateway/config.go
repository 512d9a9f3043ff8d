package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// LogPollInterval is how often streamed job logs are checked for new
	// lines.
	LogPollInterval time.Duration `yaml:"log_poll_interval"`

	// RateLimit caps /api and /ws requests per client address per minute.
	// Zero disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// Run-now requests and log streams outlive the usual write budget.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.LogPollInterval <= 0 {
		c.LogPollInterval = 500 * time.Millisecond
	}
}

// AuthConfig configures authentication for /api and /ws endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
