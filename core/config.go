package core

import (
	"fmt"
	"strings"
	"time"
)

type RateLimitConfig struct {
	MaxRequests int           `koanf:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration `koanf:"window" mapstructure:"window"`
}

type ConnectorConfig struct {
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// AccountsURL is the product screen every callback chain terminates on.
	AccountsURL string          `koanf:"accounts_url" mapstructure:"accounts_url"`
	AdminEmails []string        `koanf:"admin_emails" mapstructure:"admin_emails"`
	AttemptTTL  time.Duration   `koanf:"attempt_ttl" mapstructure:"attempt_ttl"`
	RateLimit   RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
	Connector   ConnectorConfig `koanf:"connector" mapstructure:"connector"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "connect",
		AccountsURL: "/accounts",
		AttemptTTL:  defaultAttemptTTL,
		RateLimit: RateLimitConfig{
			MaxRequests: 100,
			Window:      time.Hour,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.AccountsURL) == "" {
		return fmt.Errorf("core: accounts_url is required")
	}
	if c.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("core: rate_limit.max_requests must not be negative")
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("core: rate_limit.window must not be negative")
	}
	return nil
}

func (c Config) IsAdminEmail(email string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(email))
	if trimmed == "" {
		return false
	}
	for _, allowed := range c.AdminEmails {
		if trimmed == strings.TrimSpace(strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}
