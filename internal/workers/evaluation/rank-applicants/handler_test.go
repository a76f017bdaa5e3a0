// internal/workers/evaluation/rank-applicants/handler_test.go
package rankapplicants

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func createTestConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		IndexName: "applicant-rankings",
		CacheTTL:  5 * time.Minute,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newTestHandler(t *testing.T, rdb *redis.Client) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := createTestLogger(t)
	g := gate.New(db, nil, time.Minute, log)
	h := NewHandler(createTestConfig(), db, g, rdb, nil, log)
	return h, mock
}

func expectGatePassed(mock sqlmock.Sqlmock, seminarID, evaluatorID int64) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(seminarID, evaluatorID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
}

func poolRows() *sqlmock.Rows {
	// Deliberately unordered input. Expected order: tier rank first, then
	// mean ascending with unrated last, then id.
	return sqlmock.NewRows([]string{"id", "first_name", "last_name", "tier", "mean_score", "placement_id"}).
		AddRow(int64(1), "Ada", "Berg", "nicht_geeignet", 1.0, nil).
		AddRow(int64(2), "Ben", "Cole", "geeignet", 3.5, nil).
		AddRow(int64(3), "Cem", "Dorn", "geeignet", nil, nil).
		AddRow(int64(4), "Dee", "Ertl", "geeignet", 2.0, int64(77)).
		AddRow(int64(5), "Eli", "Falk", "bedingt_geeignet", 2.0, nil).
		AddRow(int64(6), "Fin", "Gans", "unset", nil, nil)
}

func TestHandler_Execute_RankingOrder(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	expectGatePassed(mock, 10, 3)
	mock.ExpectQuery("SELECT id, first_name, last_name, tier, mean_score, placement_id").
		WithArgs(int64(10)).
		WillReturnRows(poolRows())

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.NoError(t, err)
	require.NotNil(t, output)
	require.Len(t, output.Ranking, 6)

	ids := make([]int64, len(output.Ranking))
	for i, r := range output.Ranking {
		ids[i] = r.ApplicantID
		assert.Equal(t, i+1, r.Position)
	}
	assert.Equal(t, []int64{4, 2, 3, 5, 1, 6}, ids)

	assert.Equal(t, models.TierGeeignet, output.Ranking[0].Tier)
	require.NotNil(t, output.Ranking[0].PlacementID)
	assert.Equal(t, int64(77), *output.Ranking[0].PlacementID)
	assert.Nil(t, output.Ranking[2].MeanScore)

	assert.False(t, output.Cached)
	assert.Zero(t, output.Indexed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CachesRanking(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h, mock := newTestHandler(t, rdb)

	expectGatePassed(mock, 10, 3)
	mock.ExpectQuery("SELECT id, first_name, last_name, tier, mean_score, placement_id").
		WithArgs(int64(10)).
		WillReturnRows(poolRows())

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.NoError(t, err)
	assert.True(t, output.Cached)

	raw, err := mr.Get("ranking:10")
	require.NoError(t, err)

	var cached []models.RankedApplicant
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.Len(t, cached, 6)
	assert.Equal(t, output.Ranking, cached)
}

func TestHandler_Execute_GateBlocksRanking(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrAcknowledgmentRequired)
}

func TestHandler_Execute_PoolQueryFails(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	expectGatePassed(mock, 10, 3)
	mock.ExpectQuery("SELECT id, first_name, last_name, tier, mean_score, placement_id").
		WithArgs(int64(10)).
		WillReturnError(assert.AnError)

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrRankingFailed)
}

func TestHandler_Execute_MissingSeminar(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	output, err := h.Execute(context.Background(), &Input{EvaluatorID: 3})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrRankingFailed)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	output, err := h.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, output)
}
