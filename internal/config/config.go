package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL    string `env:"RABBITMQ_URL,required=true"`
	RedisURL       string `env:"REDIS_URL,required=true"`
	NumberAPIURL   string `env:"NUMBER_API_URL,required=true"`
	NumberAPIToken string `env:"NUMBER_API_TOKEN"`

	NumberAPITimeoutMS        int `env:"NUMBER_API_TIMEOUT_MS,default=10000"`
	ThrottleMinDelayMS        int `env:"THROTTLE_MIN_DELAY_MS,default=3000"`
	ThrottleMaxDelayMS        int `env:"THROTTLE_MAX_DELAY_MS,default=8000"`
	ReputationRateLimitPerSec int `env:"REPUTATION_RATE_LIMIT_PER_SEC,default=0"`
	ProgressTTLSec            int `env:"PROGRESS_TTL_SEC,default=3600"`
	JobRetentionSec           int `env:"JOB_RETENTION_SEC,default=3600"`
	AuditPrefetch             int `env:"AUDIT_PREFETCH,default=8"`

	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns int `env:"DB_MAX_IDLE_CONNS,default=5"`

	APIPort    int    `env:"API_PORT,default=8080"`
	WorkerPort int    `env:"WORKER_PORT,default=8081"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ThrottleMinDelayMS <= 0 {
		return fmt.Errorf("THROTTLE_MIN_DELAY_MS must be positive, got %d", c.ThrottleMinDelayMS)
	}
	if c.ThrottleMaxDelayMS <= c.ThrottleMinDelayMS {
		return fmt.Errorf("THROTTLE_MAX_DELAY_MS (%d) must exceed THROTTLE_MIN_DELAY_MS (%d)", c.ThrottleMaxDelayMS, c.ThrottleMinDelayMS)
	}
	if c.ReputationRateLimitPerSec < 0 {
		return fmt.Errorf("REPUTATION_RATE_LIMIT_PER_SEC must not be negative, got %d", c.ReputationRateLimitPerSec)
	}
	return nil
}

func (c *Config) NumberAPITimeout() time.Duration {
	return time.Duration(c.NumberAPITimeoutMS) * time.Millisecond
}

// ThrottleDelays returns the bounds of the pause between throttled calls.
func (c *Config) ThrottleDelays() (time.Duration, time.Duration) {
	return time.Duration(c.ThrottleMinDelayMS) * time.Millisecond,
		time.Duration(c.ThrottleMaxDelayMS) * time.Millisecond
}

func (c *Config) ProgressTTL() time.Duration {
	return time.Duration(c.ProgressTTLSec) * time.Second
}

func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.JobRetentionSec) * time.Second
}
