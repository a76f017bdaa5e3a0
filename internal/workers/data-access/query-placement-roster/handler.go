// internal/workers/data-access/query-placement-roster/handler.go
package queryplacementroster

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/models"
)

const (
	TaskType = "query-placement-roster"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrNotFound             = errors.New("NOT_FOUND")
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
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "QUERY_EXECUTION_FAILED"
		retries := int32(3)
		if errors.Is(err, ErrQueryTimeout) {
			errorCode = "QUERY_TIMEOUT"
			retries = 2
		} else if errors.Is(err, ErrNotFound) {
			errorCode = "NOT_FOUND"
			retries = 0
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if input.OrganizationID == 0 {
		return nil, fmt.Errorf("%w: organizationId required", ErrQueryExecutionFailed)
	}

	rosters, err := h.loadRosters(ctx, input)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrQueryTimeout
		}
		return nil, err
	}

	rowCount := 0
	for _, r := range rosters {
		rowCount += len(r.Applicants)
	}

	h.logger.Info("rosters loaded", map[string]interface{}{
		"organizationId": input.OrganizationID,
		"placements":     len(rosters),
		"applicants":     rowCount,
	})

	return &Output{
		OrganizationID: input.OrganizationID,
		Rosters:        rosters,
		RowCount:       rowCount,
	}, nil
}

func (h *Handler) loadRosters(ctx context.Context, input *Input) ([]models.PlacementRoster, error) {
	var rows *sql.Rows
	var err error
	if input.PlacementID != nil {
		rows, err = h.db.QueryContext(ctx,
			`SELECT id, name, country_id, capacity FROM placements
			WHERE organization_id = $1 AND id = $2 ORDER BY id`,
			input.OrganizationID, *input.PlacementID)
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT id, name, country_id, capacity FROM placements
			WHERE organization_id = $1 ORDER BY id`,
			input.OrganizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	var rosters []models.PlacementRoster
	for rows.Next() {
		var r models.PlacementRoster
		var capacity sql.NullInt64
		if err := rows.Scan(&r.PlacementID, &r.Name, &r.CountryID, &capacity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			r.Capacity = &c
		}
		r.Applicants = []models.RosterEntry{}
		rosters = append(rosters, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	if input.PlacementID != nil && len(rosters) == 0 {
		return nil, fmt.Errorf("%w: placement %d", ErrNotFound, *input.PlacementID)
	}

	if err := h.loadEntries(ctx, input, rosters); err != nil {
		return nil, err
	}
	return rosters, nil
}

func (h *Handler) loadEntries(ctx context.Context, input *Input, rosters []models.PlacementRoster) error {
	byPlacement := map[int64]*models.PlacementRoster{}
	for i := range rosters {
		byPlacement[rosters[i].PlacementID] = &rosters[i]
	}

	var rows *sql.Rows
	var err error
	if input.PlacementID != nil {
		rows, err = h.db.QueryContext(ctx,
			`SELECT placement_id, id, first_name, last_name, tier, mean_score
			FROM applicants
			WHERE organization_id = $1 AND placement_id = $2
			ORDER BY placement_id, last_name, first_name`,
			input.OrganizationID, *input.PlacementID)
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT placement_id, id, first_name, last_name, tier, mean_score
			FROM applicants
			WHERE organization_id = $1 AND placement_id IS NOT NULL
			ORDER BY placement_id, last_name, first_name`,
			input.OrganizationID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var placementID int64
		var entry models.RosterEntry
		var tier string
		var mean sql.NullFloat64
		if err := rows.Scan(&placementID, &entry.ApplicantID, &entry.FirstName, &entry.LastName, &tier, &mean); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}
		entry.Tier = models.Tier(tier)
		if mean.Valid {
			m := mean.Float64
			entry.MeanScore = &m
		}
		if roster, ok := byPlacement[placementID]; ok {
			roster.Applicants = append(roster.Applicants, entry)
			roster.Occupancy = len(roster.Applicants)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	return nil
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
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
