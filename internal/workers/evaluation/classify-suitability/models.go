// internal/workers/evaluation/classify-suitability/models.go
package classifysuitability

import (
	"database/sql"

	"seminar-workers/internal/common/logger"
)

type Input struct {
	ApplicantID    int64  `json:"applicantId"`
	OrganizationID int64  `json:"organizationId"`
	Tier           string `json:"tier"`
	DecidedBy      int64  `json:"decidedBy,omitempty"`
}

type Output struct {
	ApplicantID  int64  `json:"applicantId"`
	Tier         string `json:"tier"`
	PreviousTier string `json:"previousTier"`
	UpdatedAt    string `json:"updatedAt"`
}

type ServiceDependencies struct {
	Logger logger.Logger
	DB     *sql.DB
}
