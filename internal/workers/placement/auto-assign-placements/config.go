// internal/workers/placement/auto-assign-placements/config.go
package autoassignplacements

import (
	"time"
)

type Config struct {
	Timeout time.Duration
	// MaxAssignments caps one run, 0 means unlimited.
	MaxAssignments int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		MaxAssignments: 0,
	}
}
