// internal/workers/evaluation/rank-applicants/config.go
package rankapplicants

import (
	"time"
)

type Config struct {
	Timeout   time.Duration
	IndexName string
	CacheTTL  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		IndexName: "applicant-rankings",
		CacheTTL:  5 * time.Minute,
	}
}
