// internal/workers/seminar/record-acknowledgment/config.go
package recordacknowledgment

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
