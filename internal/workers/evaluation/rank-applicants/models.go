// internal/workers/evaluation/rank-applicants/models.go
package rankapplicants

import (
	"seminar-workers/internal/models"
)

type Input struct {
	SeminarID   int64 `json:"seminarId"`
	EvaluatorID int64 `json:"evaluatorId"`
}

type Output struct {
	SeminarID int64                    `json:"seminarId"`
	Ranking   []models.RankedApplicant `json:"ranking"`
	Cached    bool                     `json:"cached"`
	Indexed   int                      `json:"indexed"`
}
