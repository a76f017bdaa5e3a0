// internal/workers/evaluation/aggregate-scores/handler.go
package aggregatescores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"seminar-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "aggregate-scores"
)

var (
	ErrAggregationFailed = errors.New("AGGREGATION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
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
		h.failJob(client, job, "AGGREGATION_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if input.SeminarID == 0 && len(input.ApplicantIDs) == 0 {
		return nil, fmt.Errorf("%w: seminarId or applicantIds required", ErrAggregationFailed)
	}

	updated, err := h.recomputeMeans(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	aggregates, err := h.loadAggregates(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	h.invalidateRankingCache(ctx, input.SeminarID)

	h.logger.Info("scores aggregated", map[string]interface{}{
		"seminarId":  input.SeminarID,
		"applicants": len(aggregates),
		"updated":    updated,
	})

	return &Output{
		SeminarID:    input.SeminarID,
		UpdatedCount: updated,
		Aggregates:   aggregates,
	}, nil
}

// recomputeMeans writes every applicant's overall mean in one statement.
// The LEFT JOIN yields a NULL AVG for applicants without ratings, which
// clears any stale cached mean.
func (h *Handler) recomputeMeans(ctx context.Context, input *Input) (int, error) {
	var res sql.Result
	var err error

	if len(input.ApplicantIDs) > 0 {
		query := `UPDATE applicants a
			SET mean_score = sub.mean, updated_at = NOW()
			FROM (
				SELECT a2.id AS applicant_id, AVG(r.score) AS mean
				FROM applicants a2
				LEFT JOIN ratings r ON r.applicant_id = a2.id
				WHERE a2.id = ANY($1)
				GROUP BY a2.id
			) sub
			WHERE a.id = sub.applicant_id`
		res, err = h.db.ExecContext(ctx, query, pq.Array(input.ApplicantIDs))
	} else {
		query := `UPDATE applicants a
			SET mean_score = sub.mean, updated_at = NOW()
			FROM (
				SELECT a2.id AS applicant_id, AVG(r.score) AS mean
				FROM applicants a2
				LEFT JOIN ratings r ON r.applicant_id = a2.id
				WHERE a2.seminar_id = $1
				GROUP BY a2.id
			) sub
			WHERE a.id = sub.applicant_id`
		res, err = h.db.ExecContext(ctx, query, input.SeminarID)
	}
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (h *Handler) loadAggregates(ctx context.Context, input *Input) ([]ApplicantAggregate, error) {
	byApplicant := map[int64]*ApplicantAggregate{}
	order := []int64{}

	// Overall means, one row per applicant in scope.
	var rows *sql.Rows
	var err error
	if len(input.ApplicantIDs) > 0 {
		rows, err = h.db.QueryContext(ctx,
			`SELECT id, mean_score FROM applicants WHERE id = ANY($1) ORDER BY id`,
			pq.Array(input.ApplicantIDs))
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT id, mean_score FROM applicants WHERE seminar_id = $1 ORDER BY id`,
			input.SeminarID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var mean sql.NullFloat64
		if err := rows.Scan(&id, &mean); err != nil {
			return nil, err
		}
		agg := &ApplicantAggregate{ApplicantID: id, CategoryMeans: map[int64]float64{}}
		if mean.Valid {
			m := mean.Float64
			agg.Mean = &m
		}
		byApplicant[id] = agg
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := h.loadCategoryMeans(ctx, input, byApplicant); err != nil {
		return nil, err
	}

	out := make([]ApplicantAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byApplicant[id])
	}
	return out, nil
}

func (h *Handler) loadCategoryMeans(ctx context.Context, input *Input, byApplicant map[int64]*ApplicantAggregate) error {
	var rows *sql.Rows
	var err error
	if len(input.ApplicantIDs) > 0 {
		rows, err = h.db.QueryContext(ctx,
			`SELECT r.applicant_id, c.id, AVG(r.score)
			FROM ratings r
			JOIN questions q ON q.id = r.question_id
			JOIN categories c ON c.id = q.category_id
			WHERE r.applicant_id = ANY($1)
			GROUP BY r.applicant_id, c.id
			ORDER BY r.applicant_id, c.id`,
			pq.Array(input.ApplicantIDs))
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT r.applicant_id, c.id, AVG(r.score)
			FROM ratings r
			JOIN questions q ON q.id = r.question_id
			JOIN categories c ON c.id = q.category_id
			JOIN applicants a ON a.id = r.applicant_id
			WHERE a.seminar_id = $1
			GROUP BY r.applicant_id, c.id
			ORDER BY r.applicant_id, c.id`,
			input.SeminarID)
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var applicantID, categoryID int64
		var mean float64
		if err := rows.Scan(&applicantID, &categoryID, &mean); err != nil {
			return err
		}
		if agg, ok := byApplicant[applicantID]; ok {
			agg.CategoryMeans[categoryID] = mean
		}
	}
	return rows.Err()
}

// invalidateRankingCache drops the cached ranked list after means change.
// Cache trouble is logged, never surfaced.
func (h *Handler) invalidateRankingCache(ctx context.Context, seminarID int64) {
	if h.redis == nil || seminarID == 0 {
		return
	}
	key := fmt.Sprintf("ranking:%d", seminarID)
	if err := h.redis.Del(ctx, key).Err(); err != nil {
		h.logger.Warn("ranking cache invalidation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
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
