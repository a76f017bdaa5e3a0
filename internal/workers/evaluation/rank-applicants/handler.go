// internal/workers/evaluation/rank-applicants/handler.go
package rankapplicants

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	cerrors "seminar-workers/internal/common/errors"
	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "rank-applicants"
)

var (
	ErrRankingFailed          = errors.New("RANKING_FAILED")
	ErrAcknowledgmentRequired = errors.New("ACKNOWLEDGMENT_REQUIRED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	gate   *gate.Gate
	redis  *redis.Client
	es     *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, g *gate.Gate, rdb *redis.Client, es *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		gate:   g,
		redis:  rdb,
		es:     es,
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
		errorCode := "RANKING_FAILED"
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
	if input.SeminarID == 0 {
		return nil, fmt.Errorf("%w: seminarId required", ErrRankingFailed)
	}

	if err := h.gate.Require(ctx, input.SeminarID, input.EvaluatorID); err != nil {
		var stdErr *cerrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == cerrors.ErrCodeAcknowledgmentRequired {
			return nil, fmt.Errorf("%w: evaluator %d has not acknowledged seminar %d",
				ErrAcknowledgmentRequired, input.EvaluatorID, input.SeminarID)
		}
		return nil, fmt.Errorf("%w: %v", ErrRankingFailed, err)
	}

	pool, err := h.loadPool(ctx, input.SeminarID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRankingFailed, err)
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Less(pool[j])
	})

	ranking := make([]models.RankedApplicant, len(pool))
	for i, a := range pool {
		ranking[i] = models.RankedApplicant{
			Position:    i + 1,
			ApplicantID: a.ID,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			Tier:        a.Tier,
			MeanScore:   a.MeanScore,
			PlacementID: a.PlacementID,
		}
	}

	cached := h.cacheRanking(ctx, input.SeminarID, ranking)
	indexed := h.indexRanking(ctx, input.SeminarID, ranking)

	h.logger.Info("applicants ranked", map[string]interface{}{
		"seminarId":  input.SeminarID,
		"applicants": len(ranking),
		"cached":     cached,
		"indexed":    indexed,
	})

	return &Output{
		SeminarID: input.SeminarID,
		Ranking:   ranking,
		Cached:    cached,
		Indexed:   indexed,
	}, nil
}

func (h *Handler) loadPool(ctx context.Context, seminarID int64) ([]*models.Applicant, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, tier, mean_score, placement_id
		FROM applicants
		WHERE seminar_id = $1`,
		seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pool []*models.Applicant
	for rows.Next() {
		a := &models.Applicant{SeminarID: seminarID}
		var tier string
		var mean sql.NullFloat64
		var placement sql.NullInt64
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &tier, &mean, &placement); err != nil {
			return nil, err
		}
		a.Tier = models.Tier(tier)
		if mean.Valid {
			m := mean.Float64
			a.MeanScore = &m
		}
		if placement.Valid {
			p := placement.Int64
			a.PlacementID = &p
		}
		pool = append(pool, a)
	}
	return pool, rows.Err()
}

// cacheRanking stores the ranked list for the presentation layer. Cache
// trouble is logged, never surfaced.
func (h *Handler) cacheRanking(ctx context.Context, seminarID int64, ranking []models.RankedApplicant) bool {
	if h.redis == nil {
		return false
	}

	payload, err := json.Marshal(ranking)
	if err != nil {
		h.logger.Warn("ranking cache marshal failed", map[string]interface{}{
			"seminarId": seminarID,
			"error":     err.Error(),
		})
		return false
	}

	key := fmt.Sprintf("ranking:%d", seminarID)
	if err := h.redis.Set(ctx, key, payload, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("ranking cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// indexRanking pushes each entry into the search index for reporting.
// Per-entry failures are logged and counted out, never surfaced.
func (h *Handler) indexRanking(ctx context.Context, seminarID int64, ranking []models.RankedApplicant) int {
	if h.es == nil {
		return 0
	}

	indexed := 0
	for _, entry := range ranking {
		doc, err := json.Marshal(map[string]interface{}{
			"seminarId":   seminarID,
			"position":    entry.Position,
			"applicantId": entry.ApplicantID,
			"firstName":   entry.FirstName,
			"lastName":    entry.LastName,
			"tier":        entry.Tier,
			"meanScore":   entry.MeanScore,
		})
		if err != nil {
			continue
		}

		req := esapi.IndexRequest{
			Index:      h.config.IndexName,
			DocumentID: fmt.Sprintf("%d-%d", seminarID, entry.ApplicantID),
			Body:       bytes.NewReader(doc),
		}
		res, err := req.Do(ctx, h.es)
		if err != nil {
			h.logger.Warn("ranking index write failed", map[string]interface{}{
				"applicantId": entry.ApplicantID,
				"error":       err.Error(),
			})
			continue
		}
		if res.IsError() {
			h.logger.Warn("ranking index write rejected", map[string]interface{}{
				"applicantId": entry.ApplicantID,
				"status":      res.Status(),
			})
			res.Body.Close()
			continue
		}
		res.Body.Close()
		indexed++
	}
	return indexed
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
