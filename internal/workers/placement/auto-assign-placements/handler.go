// internal/workers/placement/auto-assign-placements/handler.go
package autoassignplacements

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/common/metrics"
	"seminar-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "auto-assign-placements"
)

var (
	ErrAssignmentFailed = errors.New("ASSIGNMENT_FAILED")
)

// placementSlot is the in-transaction view of one locked placement row.
// A nil capacity means the placement never receives automatic
// assignments.
type placementSlot struct {
	id       int64
	capacity *int64
	assigned int
}

func (s *placementSlot) hasRoom() bool {
	return s.capacity != nil && int64(s.assigned) < *s.capacity
}

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
		h.failJob(client, job, "ASSIGNMENT_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute runs one assignment pass inside a single transaction. The
// organization's placement rows are locked up front so concurrent runs
// serialize and the capacity bound holds after commit.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if input.SeminarID == 0 || input.OrganizationID == 0 {
		return nil, fmt.Errorf("%w: seminarId and organizationId required", ErrAssignmentFailed)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", ErrAssignmentFailed, err)
	}
	defer tx.Rollback()

	slots, order, err := h.lockPlacements(ctx, tx, input.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
	}

	if err := h.loadOccupancy(ctx, tx, input.OrganizationID, slots); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
	}

	pool, err := h.loadEligiblePool(ctx, tx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Less(pool[j])
	})

	assigned := []Assignment{}
	unassigned := []int64{}
	for _, applicant := range pool {
		if h.config.MaxAssignments > 0 && len(assigned) >= h.config.MaxAssignments {
			unassigned = append(unassigned, applicant.ID)
			continue
		}

		placed := false
		for rank, pref := range applicant.Preferences() {
			slot, ok := slots[pref]
			if !ok || !slot.hasRoom() {
				continue
			}

			if err := h.assign(ctx, tx, applicant.ID, slot.id); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrAssignmentFailed, err)
			}
			slot.assigned++
			assigned = append(assigned, Assignment{
				ApplicantID: applicant.ID,
				PlacementID: slot.id,
				ChoiceRank:  rank + 1,
			})
			placed = true
			break
		}
		// Running out of wishes or capacity is a normal outcome, the
		// applicant simply stays unassigned.
		if !placed {
			unassigned = append(unassigned, applicant.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrAssignmentFailed, err)
	}

	metrics.AssignmentsCreated.WithLabelValues("auto").Add(float64(len(assigned)))

	h.logger.Info("auto assignment completed", map[string]interface{}{
		"seminarId":  input.SeminarID,
		"assigned":   len(assigned),
		"unassigned": len(unassigned),
	})

	placements := make([]PlacementOccupancy, 0, len(order))
	for _, id := range order {
		slot := slots[id]
		placements = append(placements, PlacementOccupancy{
			PlacementID: slot.id,
			Capacity:    slot.capacity,
			Assigned:    slot.assigned,
		})
	}

	return &Output{
		SeminarID:  input.SeminarID,
		Assigned:   assigned,
		Unassigned: unassigned,
		Placements: placements,
	}, nil
}

func (h *Handler) lockPlacements(ctx context.Context, tx *sql.Tx, organizationID int64) (map[int64]*placementSlot, []int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, capacity FROM placements WHERE organization_id = $1 ORDER BY id FOR UPDATE`,
		organizationID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	slots := map[int64]*placementSlot{}
	order := []int64{}
	for rows.Next() {
		var id int64
		var capacity sql.NullInt64
		if err := rows.Scan(&id, &capacity); err != nil {
			return nil, nil, err
		}
		slot := &placementSlot{id: id}
		if capacity.Valid {
			c := capacity.Int64
			slot.capacity = &c
		}
		slots[id] = slot
		order = append(order, id)
	}
	return slots, order, rows.Err()
}

func (h *Handler) loadOccupancy(ctx context.Context, tx *sql.Tx, organizationID int64, slots map[int64]*placementSlot) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT placement_id, COUNT(*)
		FROM applicants
		WHERE organization_id = $1 AND placement_id IS NOT NULL
		GROUP BY placement_id`,
		organizationID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var placementID int64
		var count int
		if err := rows.Scan(&placementID, &count); err != nil {
			return err
		}
		if slot, ok := slots[placementID]; ok {
			slot.assigned = count
		}
	}
	return rows.Err()
}

func (h *Handler) loadEligiblePool(ctx context.Context, tx *sql.Tx, input *Input) ([]*models.Applicant, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, tier, mean_score, first_choice, second_choice, third_choice
		FROM applicants
		WHERE seminar_id = $1 AND organization_id = $2
			AND placement_id IS NULL
			AND tier IN ('geeignet', 'bedingt_geeignet')`,
		input.SeminarID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pool []*models.Applicant
	for rows.Next() {
		a := &models.Applicant{
			SeminarID:      input.SeminarID,
			OrganizationID: input.OrganizationID,
		}
		var tier string
		var mean sql.NullFloat64
		var first, second, third sql.NullInt64
		if err := rows.Scan(&a.ID, &tier, &mean, &first, &second, &third); err != nil {
			return nil, err
		}
		a.Tier = models.Tier(tier)
		if mean.Valid {
			m := mean.Float64
			a.MeanScore = &m
		}
		if first.Valid {
			v := first.Int64
			a.FirstChoice = &v
		}
		if second.Valid {
			v := second.Int64
			a.SecondChoice = &v
		}
		if third.Valid {
			v := third.Int64
			a.ThirdChoice = &v
		}
		pool = append(pool, a)
	}
	return pool, rows.Err()
}

func (h *Handler) assign(ctx context.Context, tx *sql.Tx, applicantID, placementID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE applicants SET placement_id = $1, updated_at = NOW() WHERE id = $2`,
		placementID, applicantID)
	return err
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
