// internal/workers/seminar/check-acknowledgment/handler_test.go
package checkacknowledgment

import (
	"context"
	"testing"
	"time"

	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	g := gate.New(db, nil, time.Minute, log)
	h := NewHandler(&Config{Timeout: 10 * time.Second}, g, log)
	return h, mock
}

func TestHandler_Execute_Acknowledged(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.NoError(t, err)

	assert.True(t, output.Acknowledged)
	assert.Equal(t, int64(10), output.SeminarID)
	assert.Equal(t, int64(3), output.EvaluatorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NotAcknowledged(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.NoError(t, err)
	assert.False(t, output.Acknowledged)
}

func TestHandler_Execute_QueryFailure(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(assert.AnError)

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10, EvaluatorID: 3})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrCheckFailed)
}

func TestHandler_Execute_MissingIDs(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{SeminarID: 10})
	require.Error(t, err)
	assert.Nil(t, output)

	output, err = h.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, output)
}
