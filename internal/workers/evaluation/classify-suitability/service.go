// internal/workers/evaluation/classify-suitability/service.go
package classifysuitability

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"seminar-workers/internal/common/errors"
	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/models"
)

type Service struct {
	config *Config
	logger logger.Logger
	db     *sql.DB
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		logger: deps.Logger,
		db:     deps.DB,
	}
}

// Execute stores a manually decided suitability tier. The tier is never
// computed from scores; this worker only records the evaluator's call.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	tier, err := models.ParseTier(input.Tier)
	if err != nil {
		return nil, errors.NewInvalidTierError(input.Tier)
	}

	s.logger.Info("classifying applicant", map[string]interface{}{
		"applicantId":    input.ApplicantID,
		"organizationId": input.OrganizationID,
		"tier":           tier,
	})

	var previous string
	var updatedAt time.Time
	err = s.db.QueryRowContext(ctx, `
		UPDATE applicants
		SET tier = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
		RETURNING (SELECT tier FROM applicants WHERE id = $2), updated_at`,
		string(tier), input.ApplicantID, input.OrganizationID,
	).Scan(&previous, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("applicant", input.ApplicantID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("classify-suitability", err)
	}

	s.writeAuditLog(ctx, input, previous, string(tier))

	return &Output{
		ApplicantID:  input.ApplicantID,
		Tier:         string(tier),
		PreviousTier: previous,
		UpdatedAt:    updatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// writeAuditLog records the decision. Audit trouble never fails the job.
func (s *Service) writeAuditLog(ctx context.Context, input *Input, previous, current string) {
	details, err := json.Marshal(map[string]interface{}{
		"previousTier": previous,
		"tier":         current,
		"decidedBy":    input.DecidedBy,
	})
	if err != nil {
		s.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err.Error(),
		})
		details = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		"suitability_classified", "applicant", input.ApplicantID, details,
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"applicantId": input.ApplicantID,
			"error":       err.Error(),
		})
	}
}
