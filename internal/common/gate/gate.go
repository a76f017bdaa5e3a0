// Package gate enforces the one-time confidentiality acknowledgment an
// evaluator must give before seeing any evaluation data for a seminar.
package gate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"seminar-workers/internal/common/errors"
	"seminar-workers/internal/common/logger"
)

const cacheKeyFormat = "gate:ack:%d:%d"

// Gate answers and records acknowledgment membership. The Redis cache is
// optional and positive-only: absence of a key never means "not acknowledged".
type Gate struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *Gate {
	return &Gate{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Passed reports whether the evaluator has acknowledged the seminar terms.
func (g *Gate) Passed(ctx context.Context, seminarID, evaluatorID int64) (bool, error) {
	key := fmt.Sprintf(cacheKeyFormat, seminarID, evaluatorID)

	if g.cache != nil {
		val, err := g.cache.Get(ctx, key).Result()
		if err == nil && val == "1" {
			return true, nil
		}
		if err != nil && err != redis.Nil {
			g.logger.Warn("Gate cache read failed, falling back to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	var acknowledged bool
	query := `SELECT EXISTS(
		SELECT 1 FROM seminar_acknowledgments
		WHERE seminar_id = $1 AND evaluator_id = $2
	)`
	if err := g.db.QueryRowContext(ctx, query, seminarID, evaluatorID).Scan(&acknowledged); err != nil {
		return false, errors.NewQueryExecutionFailedError("gate_lookup", err)
	}

	if acknowledged {
		g.cachePassed(ctx, key)
	}

	return acknowledged, nil
}

// Require returns ACKNOWLEDGMENT_REQUIRED when the evaluator has not passed
// the gate. Workers call this before touching any evaluation data.
func (g *Gate) Require(ctx context.Context, seminarID, evaluatorID int64) error {
	passed, err := g.Passed(ctx, seminarID, evaluatorID)
	if err != nil {
		return err
	}
	if !passed {
		return errors.NewAcknowledgmentRequiredError(seminarID, evaluatorID)
	}
	return nil
}

// Record stores the acknowledgment. Idempotent: recording twice is not an
// error, the returned bool reports whether a new row was created.
func (g *Gate) Record(ctx context.Context, seminarID, evaluatorID int64) (bool, error) {
	query := `INSERT INTO seminar_acknowledgments (seminar_id, evaluator_id, acknowledged_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (seminar_id, evaluator_id) DO NOTHING`

	res, err := g.db.ExecContext(ctx, query, seminarID, evaluatorID)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("gate_record", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("gate_record", err)
	}

	g.cachePassed(ctx, fmt.Sprintf(cacheKeyFormat, seminarID, evaluatorID))

	return rows > 0, nil
}

func (g *Gate) cachePassed(ctx context.Context, key string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, "1", g.ttl).Err(); err != nil {
		g.logger.Warn("Gate cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
