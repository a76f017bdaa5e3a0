// internal/workers/placement/assign-placement/handler.go
package assignplacement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assign-placement"
)

var (
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrAssignmentFailed = errors.New("ASSIGNMENT_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "ASSIGNMENT_FAILED"
		if errors.Is(err, ErrNotFound) {
			errorCode = "NOT_FOUND"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute sets or clears the applicant's placement unconditionally. This
// is the administrator override path: capacity is not checked.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if input.ApplicantID == 0 || input.OrganizationID == 0 {
		return nil, fmt.Errorf("%w: applicantId and organizationId required", ErrAssignmentFailed)
	}

	if input.PlacementID != nil {
		if err := h.checkPlacement(ctx, *input.PlacementID, input.OrganizationID); err != nil {
			return nil, err
		}
	}

	var previous sql.NullInt64
	err := h.db.QueryRowContext(ctx, `
		UPDATE applicants
		SET placement_id = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
		RETURNING (SELECT placement_id FROM applicants WHERE id = $2)`,
		input.PlacementID, input.ApplicantID, input.OrganizationID,
	).Scan(&previous)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: applicant %d", ErrNotFound, input.ApplicantID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
	}

	output := &Output{
		ApplicantID: input.ApplicantID,
		PlacementID: input.PlacementID,
	}
	if previous.Valid {
		p := previous.Int64
		output.PreviousPlacementID = &p
	}

	h.writeAuditLog(ctx, input, output.PreviousPlacementID)
	metrics.AssignmentsCreated.WithLabelValues("manual").Inc()

	h.logger.Info("placement assignment updated", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"placementId": input.PlacementID,
	})

	return output, nil
}

func (h *Handler) checkPlacement(ctx context.Context, placementID, organizationID int64) error {
	var exists bool
	err := h.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM placements WHERE id = $1 AND organization_id = $2)`,
		placementID, organizationID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
	}
	if !exists {
		return fmt.Errorf("%w: placement %d", ErrNotFound, placementID)
	}
	return nil
}

// writeAuditLog records the override. Audit trouble never fails the job.
func (h *Handler) writeAuditLog(ctx context.Context, input *Input, previous *int64) {
	details, err := json.Marshal(map[string]interface{}{
		"placementId":         input.PlacementID,
		"previousPlacementId": previous,
		"assignedBy":          input.AssignedBy,
		"mode":                "manual",
	})
	if err != nil {
		h.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err.Error(),
		})
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		"placement_assigned", "applicant", input.ApplicantID, details,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"applicantId": input.ApplicantID,
			"error":       err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
