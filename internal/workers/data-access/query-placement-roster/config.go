// internal/workers/data-access/query-placement-roster/config.go
package queryplacementroster

import (
	"time"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
