// internal/workers/evaluation/flush-draft-entries/config.go
package flushdraftentries

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
