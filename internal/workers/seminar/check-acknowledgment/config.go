// internal/workers/seminar/check-acknowledgment/config.go
package checkacknowledgment

import (
	"time"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
