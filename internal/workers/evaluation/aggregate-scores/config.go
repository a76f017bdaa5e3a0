// internal/workers/evaluation/aggregate-scores/config.go
package aggregatescores

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
