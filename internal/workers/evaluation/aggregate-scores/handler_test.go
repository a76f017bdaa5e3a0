// internal/workers/evaluation/aggregate-scores/handler_test.go
package aggregatescores

import (
	"context"
	"testing"
	"time"

	"seminar-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func createTestConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(createTestConfig(), db, nil, createTestLogger(t))
	return h, mock
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestHandler_Execute_SeminarScope(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectExec("UPDATE applicants a").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	mock.ExpectQuery("SELECT id, mean_score FROM applicants WHERE seminar_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "mean_score"}).
			AddRow(int64(1), 4.5).
			AddRow(int64(2), 3.0).
			AddRow(int64(3), nil))

	mock.ExpectQuery("SELECT r.applicant_id, c.id, AVG").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id", "category_id", "mean"}).
			AddRow(int64(1), int64(100), 4.5).
			AddRow(int64(2), int64(100), 3.5).
			AddRow(int64(2), int64(200), 2.5))

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10})
	require.NoError(t, err)
	require.NotNil(t, output)

	assert.Equal(t, int64(10), output.SeminarID)
	assert.Equal(t, 3, output.UpdatedCount)
	require.Len(t, output.Aggregates, 3)

	first := output.Aggregates[0]
	assert.Equal(t, int64(1), first.ApplicantID)
	require.NotNil(t, first.Mean)
	assert.InDelta(t, 4.5, *first.Mean, 0.0001)
	assert.InDelta(t, 4.5, first.CategoryMeans[100], 0.0001)

	second := output.Aggregates[1]
	assert.Len(t, second.CategoryMeans, 2)

	// Applicant 3 has no ratings, so the mean stays unset.
	third := output.Aggregates[2]
	assert.Nil(t, third.Mean)
	assert.Empty(t, third.CategoryMeans)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ApplicantScope(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectExec("UPDATE applicants a").
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectQuery("SELECT id, mean_score FROM applicants WHERE id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "mean_score"}).
			AddRow(int64(5), 2.0).
			AddRow(int64(6), 3.0))

	mock.ExpectQuery("SELECT r.applicant_id, c.id, AVG").
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id", "category_id", "mean"}).
			AddRow(int64(5), int64(100), 2.0))

	output, err := h.Execute(context.Background(), &Input{
		SeminarID:    10,
		ApplicantIDs: []int64{5, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, output.UpdatedCount)
	require.Len(t, output.Aggregates, 2)
	assert.Equal(t, int64(5), output.Aggregates[0].ApplicantID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidatesRankingCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, mr := newTestRedis(t)
	require.NoError(t, mr.Set("ranking:10", "[]"))

	h := NewHandler(createTestConfig(), db, rdb, createTestLogger(t))

	mock.ExpectExec("UPDATE applicants a").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, mean_score FROM applicants WHERE seminar_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "mean_score"}).AddRow(int64(1), 4.0))
	mock.ExpectQuery("SELECT r.applicant_id, c.id, AVG").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id", "category_id", "mean"}))

	_, err = h.Execute(context.Background(), &Input{SeminarID: 10})
	require.NoError(t, err)

	assert.False(t, mr.Exists("ranking:10"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UpdateFails(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectExec("UPDATE applicants a").
		WithArgs(int64(10)).
		WillReturnError(assert.AnError)

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestHandler_Execute_MissingScope(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, output)
}
