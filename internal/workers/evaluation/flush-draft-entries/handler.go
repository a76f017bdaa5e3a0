// internal/workers/evaluation/flush-draft-entries/handler.go
package flushdraftentries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	cerrors "seminar-workers/internal/common/errors"
	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/common/metrics"
	"seminar-workers/internal/drafttoken"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "flush-draft-entries"
)

var (
	ErrFlushFailed            = errors.New("FLUSH_FAILED")
	ErrAcknowledgmentRequired = errors.New("ACKNOWLEDGMENT_REQUIRED")
)

const (
	StatusInserted = "inserted"
	StatusUpdated  = "updated"
	StatusSkipped  = "skipped"
)

type Handler struct {
	config *Config
	db     *sql.DB
	gate   *gate.Gate
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, g *gate.Gate, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		gate:   g,
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
		errorCode := "FLUSH_FAILED"
		if errors.Is(err, ErrAcknowledgmentRequired) {
			errorCode = "ACKNOWLEDGMENT_REQUIRED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	if err := h.gate.Require(ctx, input.SeminarID, input.EvaluatorID); err != nil {
		var stdErr *cerrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == cerrors.ErrCodeAcknowledgmentRequired {
			return nil, fmt.Errorf("%w: seminar %d, evaluator %d",
				ErrAcknowledgmentRequired, input.SeminarID, input.EvaluatorID)
		}
		return nil, err
	}

	output := &Output{
		BatchID:     uuid.NewString(),
		ClearTokens: []string{},
		Results:     make([]TokenResult, 0, len(input.Tokens)),
	}

	wireTokens := make([]drafttoken.Token, len(input.Tokens))
	for i, t := range input.Tokens {
		wireTokens[i] = drafttoken.Token{Key: t.Key, Value: t.Value}
	}

	for _, dec := range drafttoken.DecodeBatch(wireTokens) {
		result := h.processToken(ctx, input, dec)
		output.Results = append(output.Results, result)

		switch result.Status {
		case StatusInserted:
			output.Inserted++
			output.ClearTokens = append(output.ClearTokens, result.Key)
		case StatusUpdated:
			output.Updated++
			output.ClearTokens = append(output.ClearTokens, result.Key)
		case StatusSkipped:
			output.Skipped++
		}
	}

	h.logger.Info("draft batch flushed", map[string]interface{}{
		"batchId":  output.BatchID,
		"inserted": output.Inserted,
		"updated":  output.Updated,
		"skipped":  output.Skipped,
	})

	return output, nil
}

// processToken evaluates one decoded token through to its upsert. Every
// failure is absorbed into a skipped result; a token can never fail the batch.
func (h *Handler) processToken(ctx context.Context, input *Input, dec drafttoken.DecodedToken) TokenResult {
	kind := string(dec.Record.Kind)
	if kind == "" {
		kind = "unknown"
	}

	if dec.Err != nil {
		metrics.TokensFlushed.WithLabelValues(kind, "malformed").Inc()
		h.logger.Warn("skipping malformed draft token", map[string]interface{}{
			"key":   dec.Token.Key,
			"error": dec.Err.Error(),
		})
		return TokenResult{Key: dec.Token.Key, Status: StatusSkipped, ErrorCode: "MALFORMED_TOKEN"}
	}

	rec := dec.Record

	// The encoded evaluator must be the flushing evaluator. Tokens carried
	// over from another account are dropped, not repaired.
	if rec.EvaluatorID != input.EvaluatorID {
		metrics.TokensFlushed.WithLabelValues(kind, "permission_mismatch").Inc()
		return TokenResult{Key: dec.Token.Key, Status: StatusSkipped, ErrorCode: "PERMISSION_MISMATCH"}
	}

	if code := h.checkReferents(ctx, input.OrganizationID, rec); code != "" {
		metrics.TokensFlushed.WithLabelValues(kind, "referent_rejected").Inc()
		return TokenResult{Key: dec.Token.Key, Status: StatusSkipped, ErrorCode: code}
	}

	var inserted bool
	var err error
	switch rec.Kind {
	case drafttoken.KindRating:
		inserted, err = h.upsertRating(ctx, rec)
	case drafttoken.KindComment:
		inserted, err = h.upsertComment(ctx, rec)
	default:
		err = fmt.Errorf("unknown record kind %q", rec.Kind)
	}

	if err != nil {
		metrics.TokensFlushed.WithLabelValues(kind, "write_failed").Inc()
		h.logger.Error("draft token write failed", map[string]interface{}{
			"key":   dec.Token.Key,
			"error": err.Error(),
		})
		return TokenResult{Key: dec.Token.Key, Status: StatusSkipped, ErrorCode: "QUERY_EXECUTION_FAILED"}
	}

	status := StatusUpdated
	if inserted {
		status = StatusInserted
	}
	metrics.TokensFlushed.WithLabelValues(kind, status).Inc()
	return TokenResult{Key: dec.Token.Key, Status: status}
}

// checkReferents verifies every id the token references exists and belongs
// to the flushing organization. Returns an error code, or "" when all pass.
func (h *Handler) checkReferents(ctx context.Context, orgID int64, rec drafttoken.Record) string {
	if code := h.checkScoped(ctx, "applicants", rec.ApplicantID, orgID); code != "" {
		return code
	}
	if code := h.checkScoped(ctx, "units", rec.UnitID, orgID); code != "" {
		return code
	}
	if rec.QuestionID != nil {
		if code := h.checkQuestion(ctx, *rec.QuestionID, orgID); code != "" {
			return code
		}
	}
	if rec.CategoryID != nil {
		if code := h.checkScoped(ctx, "categories", *rec.CategoryID, orgID); code != "" {
			return code
		}
	}
	return ""
}

func (h *Handler) checkScoped(ctx context.Context, table string, id, orgID int64) string {
	var rowOrg int64
	query := fmt.Sprintf("SELECT organization_id FROM %s WHERE id = $1", table)
	err := h.db.QueryRowContext(ctx, query, id).Scan(&rowOrg)
	switch {
	case err == sql.ErrNoRows:
		return "NOT_FOUND"
	case err != nil:
		return "QUERY_EXECUTION_FAILED"
	case rowOrg != orgID:
		return "PERMISSION_MISMATCH"
	}
	return ""
}

// Questions carry no organization id of their own; scope flows through the
// owning category.
func (h *Handler) checkQuestion(ctx context.Context, questionID, orgID int64) string {
	var rowOrg int64
	query := `SELECT c.organization_id FROM questions q
		JOIN categories c ON c.id = q.category_id
		WHERE q.id = $1`
	err := h.db.QueryRowContext(ctx, query, questionID).Scan(&rowOrg)
	switch {
	case err == sql.ErrNoRows:
		return "NOT_FOUND"
	case err != nil:
		return "QUERY_EXECUTION_FAILED"
	case rowOrg != orgID:
		return "PERMISSION_MISMATCH"
	}
	return ""
}

func (h *Handler) upsertRating(ctx context.Context, rec drafttoken.Record) (bool, error) {
	var inserted bool
	query := `INSERT INTO ratings (applicant_id, evaluator_id, unit_id, question_id, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (applicant_id, evaluator_id, unit_id, question_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`
	err := h.db.QueryRowContext(ctx, query,
		rec.ApplicantID, rec.EvaluatorID, rec.UnitID, *rec.QuestionID, rec.Score,
	).Scan(&inserted)
	return inserted, err
}

func (h *Handler) upsertComment(ctx context.Context, rec drafttoken.Record) (bool, error) {
	showName := rec.ShowName != nil && *rec.ShowName

	var inserted bool
	query := `INSERT INTO comments (applicant_id, evaluator_id, unit_id, category_id, body, show_evaluator_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (applicant_id, evaluator_id, unit_id, COALESCE(category_id, 0))
		DO UPDATE SET body = EXCLUDED.body, show_evaluator_name = EXCLUDED.show_evaluator_name, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`
	err := h.db.QueryRowContext(ctx, query,
		rec.ApplicantID, rec.EvaluatorID, rec.UnitID, rec.CategoryID, rec.Value, showName,
	).Scan(&inserted)
	return inserted, err
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
