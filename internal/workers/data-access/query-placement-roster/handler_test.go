// internal/workers/data-access/query-placement-roster/handler_test.go
package queryplacementroster

import (
	"context"
	"testing"
	"time"

	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
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

	h := NewHandler(createTestConfig(), db, createTestLogger(t))
	return h, mock
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestHandler_Execute_AllPlacements(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, country_id, capacity FROM placements").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country_id", "capacity"}).
			AddRow(int64(1), "Nairobi Office", int64(40), int64(2)).
			AddRow(int64(2), "Lima Office", int64(51), nil))

	mock.ExpectQuery("SELECT placement_id, id, first_name, last_name, tier, mean_score").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"placement_id", "id", "first_name", "last_name", "tier", "mean_score"}).
			AddRow(int64(1), int64(100), "Ada", "Berg", "geeignet", 2.5).
			AddRow(int64(1), int64(101), "Ben", "Cole", "bedingt_geeignet", nil))

	output, err := h.Execute(context.Background(), &Input{OrganizationID: 7})
	require.NoError(t, err)
	require.Len(t, output.Rosters, 2)

	first := output.Rosters[0]
	assert.Equal(t, int64(1), first.PlacementID)
	assert.Equal(t, "Nairobi Office", first.Name)
	require.NotNil(t, first.Capacity)
	assert.Equal(t, 2, *first.Capacity)
	assert.Equal(t, 2, first.Occupancy)
	require.Len(t, first.Applicants, 2)
	assert.Equal(t, models.TierGeeignet, first.Applicants[0].Tier)
	assert.Nil(t, first.Applicants[1].MeanScore)

	second := output.Rosters[1]
	assert.Nil(t, second.Capacity)
	assert.Zero(t, second.Occupancy)
	assert.Empty(t, second.Applicants)

	assert.Equal(t, 2, output.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SinglePlacement(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, country_id, capacity FROM placements").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country_id", "capacity"}).
			AddRow(int64(2), "Lima Office", int64(51), int64(3)))

	mock.ExpectQuery("SELECT placement_id, id, first_name, last_name, tier, mean_score").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"placement_id", "id", "first_name", "last_name", "tier", "mean_score"}).
			AddRow(int64(2), int64(102), "Cem", "Dorn", "geeignet", 3.0))

	output, err := h.Execute(context.Background(), &Input{
		OrganizationID: 7,
		PlacementID:    int64Ptr(2),
	})
	require.NoError(t, err)
	require.Len(t, output.Rosters, 1)
	assert.Equal(t, 1, output.RowCount)
}

func TestHandler_Execute_PlacementNotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, country_id, capacity FROM placements").
		WithArgs(int64(7), int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country_id", "capacity"}))

	output, err := h.Execute(context.Background(), &Input{
		OrganizationID: 7,
		PlacementID:    int64Ptr(999),
	})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_Execute_QueryFailure(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, country_id, capacity FROM placements").
		WillReturnError(assert.AnError)

	output, err := h.Execute(context.Background(), &Input{OrganizationID: 7})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrQueryExecutionFailed)
}

func TestHandler_Execute_MissingOrganization(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Nil(t, output)
}
