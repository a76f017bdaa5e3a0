package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"seminar-workers/internal/common/logger"
)

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestGate_Passed(t *testing.T) {
	tests := []struct {
		name         string
		seminarID    int64
		evaluatorID  int64
		mockQuery    func(mock sqlmock.Sqlmock)
		expectPassed bool
	}{
		{
			name:        "acknowledged evaluator",
			seminarID:   10,
			evaluatorID: 7,
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(int64(10), int64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expectPassed: true,
		},
		{
			name:        "unacknowledged evaluator",
			seminarID:   10,
			evaluatorID: 8,
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(int64(10), int64(8)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			expectPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mockQuery(mock)

			g := New(db, nil, time.Minute, createTestLogger(t))
			passed, err := g.Passed(context.Background(), tt.seminarID, tt.evaluatorID)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectPassed, passed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGate_Passed_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, client := newTestRedis(t)
	mr.Set("gate:ack:10:7", "1")

	// No SQL expectation: the cache answers before the database is asked.
	g := New(db, client, time.Minute, createTestLogger(t))
	passed, err := g.Passed(context.Background(), 10, 7)

	assert.NoError(t, err)
	assert.True(t, passed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGate_Passed_CacheMissFillsCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, client := newTestRedis(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	g := New(db, client, time.Minute, createTestLogger(t))
	passed, err := g.Passed(context.Background(), 10, 7)

	assert.NoError(t, err)
	assert.True(t, passed)
	assert.True(t, mr.Exists("gate:ack:10:7"))
}

func TestGate_Passed_CacheErrorFallsBackToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet("gate:ack:10:7").SetErr(errors.New("connection refused"))
	redisMock.ExpectSet("gate:ack:10:7", "1", time.Minute).SetVal("OK")

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	g := New(db, redisClient, time.Minute, createTestLogger(t))
	passed, err := g.Passed(context.Background(), 10, 7)

	assert.NoError(t, err)
	assert.True(t, passed)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestGate_Passed_NegativeResultNotCached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, client := newTestRedis(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	g := New(db, client, time.Minute, createTestLogger(t))
	passed, err := g.Passed(context.Background(), 10, 8)

	assert.NoError(t, err)
	assert.False(t, passed)
	assert.False(t, mr.Exists("gate:ack:10:8"))
}

func TestGate_Require(t *testing.T) {
	t.Run("passes for acknowledged evaluator", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(10), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		g := New(db, nil, time.Minute, createTestLogger(t))
		assert.NoError(t, g.Require(context.Background(), 10, 7))
	})

	t.Run("rejects unacknowledged evaluator", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(10), int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		g := New(db, nil, time.Minute, createTestLogger(t))
		err = g.Require(context.Background(), 10, 8)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ACKNOWLEDGMENT_REQUIRED")
	})
}

func TestGate_Record(t *testing.T) {
	t.Run("first acknowledgment creates a row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO seminar_acknowledgments`).
			WithArgs(int64(10), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		g := New(db, nil, time.Minute, createTestLogger(t))
		created, err := g.Record(context.Background(), 10, 7)

		assert.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeat acknowledgment is idempotent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO seminar_acknowledgments`).
			WithArgs(int64(10), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		g := New(db, nil, time.Minute, createTestLogger(t))
		created, err := g.Record(context.Background(), 10, 7)

		assert.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("record warms the cache", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mr, client := newTestRedis(t)

		mock.ExpectExec(`INSERT INTO seminar_acknowledgments`).
			WithArgs(int64(10), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		g := New(db, client, time.Minute, createTestLogger(t))
		_, err = g.Record(context.Background(), 10, 7)

		assert.NoError(t, err)
		assert.True(t, mr.Exists("gate:ack:10:7"))
	})
}
