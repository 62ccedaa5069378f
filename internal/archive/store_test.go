// internal/archive/store_test.go
package archive

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func archivedState() *models.ConversationState {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	state := models.NewConversationState("conv-1", now)
	state.Stage = models.StageInfoGathering
	state.Applicant.Name = "Priya Sharma"
	return state
}

func TestRecordTurn(t *testing.T) {
	store, mock := newTestStore(t)
	state := archivedState()
	user := models.Message{Role: models.RoleUser, Content: "hi", Timestamp: state.CreatedAt}
	assistant := models.Message{Role: models.RoleAssistant, Content: "hello!", Timestamp: state.CreatedAt}

	mock.ExpectExec(`INSERT INTO conversations`).
		WithArgs(state.ID, string(state.Stage), sqlmock.AnyArg(), nil, nil,
			state.CreatedAt, state.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(state.ID, models.RoleUser, "hi", user.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(state.ID, models.RoleAssistant, "hello!", assistant.Timestamp).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := store.RecordTurn(context.Background(), state, user, assistant)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTurn_DatabaseError(t *testing.T) {
	store, mock := newTestStore(t)
	state := archivedState()

	mock.ExpectExec(`INSERT INTO conversations`).
		WillReturnError(assert.AnError)

	err := store.RecordTurn(context.Background(), state,
		models.Message{Role: models.RoleUser, Content: "hi"},
		models.Message{Role: models.RoleAssistant, Content: "hello"})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeDatabaseFailed, commonerrors.CodeOf(err))
}

func TestRecordDocument(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("conv-1", "pan_card", "store/pan-001.pdf", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordDocument(context.Background(), "conv-1", "pan_card", "store/pan-001.pdf")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT stage, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"stage", "count"}).
			AddRow("COMPLETED", 5).
			AddRow("INFO_GATHERING", 3))
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"approved", "rejected"}).AddRow(4, 1))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalConversations)
	assert.Equal(t, 5, stats.ByStage["COMPLETED"])
	assert.Equal(t, 4, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplications(t *testing.T) {
	store, mock := newTestStore(t)
	updated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, stage`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "stage", "name", "loan_amount", "status", "updated_at"}).
			AddRow("conv-1", "COMPLETED", "Priya Sharma", 500000.0, "APPROVED", updated))

	apps, err := store.ListApplications(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, apps, 1)
	assert.Equal(t, "conv-1", apps[0].ConversationID)
	assert.Equal(t, "APPROVED", apps[0].DecisionStatus)
	assert.Equal(t, 500000.0, apps[0].LoanAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
