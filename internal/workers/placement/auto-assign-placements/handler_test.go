// internal/workers/placement/auto-assign-placements/handler_test.go
package autoassignplacements

import (
	"context"
	"testing"
	"time"

	"seminar-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func createTestConfig() *Config {
	return &Config{Timeout: 60 * time.Second}
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

func placementRows(rows ...[]driverValue) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"id", "capacity"})
	for _, row := range rows {
		r.AddRow(row[0], row[1])
	}
	return r
}

type driverValue = interface{}

func poolColumns() []string {
	return []string{"id", "tier", "mean_score", "first_choice", "second_choice", "third_choice"}
}

func expectRun(mock sqlmock.Sqlmock, placements, occupancy, pool *sqlmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, capacity FROM placements").
		WithArgs(int64(7)).
		WillReturnRows(placements)
	mock.ExpectQuery("SELECT placement_id, COUNT").
		WithArgs(int64(7)).
		WillReturnRows(occupancy)
	mock.ExpectQuery("SELECT id, tier, mean_score, first_choice, second_choice, third_choice").
		WithArgs(int64(10), int64(7)).
		WillReturnRows(pool)
}

// Applicant X prefers P1 (full) then P2 (room left); the run must fall
// through to the second choice.
func TestHandler_Execute_FallsThroughToSecondChoice(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows(
			[]driverValue{int64(1), int64(1)},
			[]driverValue{int64(2), int64(2)},
		),
		sqlmock.NewRows([]string{"placement_id", "count"}).
			AddRow(int64(1), 1).
			AddRow(int64(2), 1),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "geeignet", 2.0, int64(1), int64(2), nil),
	)
	mock.ExpectExec("UPDATE applicants SET placement_id").
		WithArgs(int64(2), int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.NoError(t, err)
	require.Len(t, output.Assigned, 1)

	assert.Equal(t, int64(100), output.Assigned[0].ApplicantID)
	assert.Equal(t, int64(2), output.Assigned[0].PlacementID)
	assert.Equal(t, 2, output.Assigned[0].ChoiceRank)
	assert.Empty(t, output.Unassigned)

	require.Len(t, output.Placements, 2)
	assert.Equal(t, 1, output.Placements[0].Assigned)
	assert.Equal(t, 2, output.Placements[1].Assigned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Stronger tier goes first even with a weaker mean; within a tier the
// lower mean claims the scarce spot.
func TestHandler_Execute_RankingOrderDrivesScarcity(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows([]driverValue{int64(1), int64(2)}),
		sqlmock.NewRows([]string{"placement_id", "count"}),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "bedingt_geeignet", 1.0, int64(1), nil, nil).
			AddRow(int64(101), "geeignet", 4.0, int64(1), nil, nil).
			AddRow(int64(102), "geeignet", 2.0, int64(1), nil, nil),
	)
	// Applicant 102 (geeignet, 2.0) first, then 101 (geeignet, 4.0).
	mock.ExpectExec("UPDATE applicants SET placement_id").
		WithArgs(int64(1), int64(102)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applicants SET placement_id").
		WithArgs(int64(1), int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.NoError(t, err)
	require.Len(t, output.Assigned, 2)

	assert.Equal(t, int64(102), output.Assigned[0].ApplicantID)
	assert.Equal(t, int64(101), output.Assigned[1].ApplicantID)
	assert.Equal(t, []int64{100}, output.Unassigned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A nil capacity means the placement never takes automatic assignments.
func TestHandler_Execute_NilCapacityNeverAssigned(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows([]driverValue{int64(1), nil}),
		sqlmock.NewRows([]string{"placement_id", "count"}),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "geeignet", 1.0, int64(1), nil, nil),
	)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.NoError(t, err)

	assert.Empty(t, output.Assigned)
	assert.Equal(t, []int64{100}, output.Unassigned)
	assert.Nil(t, output.Placements[0].Capacity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// No capacity anywhere in the wish list is a normal outcome, not an
// error.
func TestHandler_Execute_LeftoversStayUnassigned(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows([]driverValue{int64(1), int64(1)}),
		sqlmock.NewRows([]string{"placement_id", "count"}).AddRow(int64(1), 1),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "geeignet", 1.0, int64(1), nil, nil).
			AddRow(int64(101), "geeignet", 2.0, nil, nil, nil),
	)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.NoError(t, err)

	assert.Empty(t, output.Assigned)
	assert.ElementsMatch(t, []int64{100, 101}, output.Unassigned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownPreferenceSkipped(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows([]driverValue{int64(1), int64(5)}),
		sqlmock.NewRows([]string{"placement_id", "count"}),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "geeignet", 1.0, int64(999), int64(1), nil),
	)
	mock.ExpectExec("UPDATE applicants SET placement_id").
		WithArgs(int64(1), int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.NoError(t, err)
	require.Len(t, output.Assigned, 1)
	assert.Equal(t, 2, output.Assigned[0].ChoiceRank)
}

func TestHandler_Execute_AssignWriteFailsRollsBack(t *testing.T) {
	h, mock := newTestHandler(t)

	expectRun(mock,
		placementRows([]driverValue{int64(1), int64(5)}),
		sqlmock.NewRows([]string{"placement_id", "count"}),
		sqlmock.NewRows(poolColumns()).
			AddRow(int64(100), "geeignet", 1.0, int64(1), nil, nil),
	)
	mock.ExpectExec("UPDATE applicants SET placement_id").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, OrganizationID: 7})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrAssignmentFailed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingInput(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10})
	require.Error(t, err)
	assert.Nil(t, output)

	output, err = h.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, output)
}
