package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atti/internal/audit/models"
	id "atti/pkg/domain"
)

const selectColumns = "SELECT id, process_instance_id, event_type, user_id, timestamp, details FROM audit_log"

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresAppend(t *testing.T) {
	st, mock := newMockStore(t)
	stamped := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_log (id, process_instance_id, event_type, user_id, details)")).
		WithArgs(sqlmock.AnyArg(), "proc-1", "STATO_AGGIORNATO", "mrossi", nil).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}).AddRow(stamped))

	e := &models.Event{
		ID:                id.NewAuditEventID(),
		ProcessInstanceID: "proc-1",
		EventType:         "STATO_AGGIORNATO",
		UserID:            "mrossi",
		Timestamp:         time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.Append(context.Background(), e))
	assert.Equal(t, stamped, e.Timestamp, "timestamp comes from the database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendError(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnError(errors.New("connection reset"))

	err := st.Append(context.Background(), &models.Event{ID: id.NewAuditEventID(), EventType: "X"})
	assert.ErrorContains(t, err, "insert audit event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuery(t *testing.T) {
	eventID := uuid.New()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "process_instance_id", "event_type", "user_id", "timestamp", "details"}).
			AddRow(eventID.String(), "proc-1", "ATTO_PUBBLICATO", "mrossi", at, nil)
	}

	t.Run("no filters", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " ORDER BY timestamp DESC, id")).
			WillReturnRows(rows())

		events, err := st.Query(context.Background(), models.Filter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, id.AuditEventID(eventID), events[0].ID)
		assert.Equal(t, "proc-1", events[0].ProcessInstanceID)
		assert.Empty(t, events[0].Details)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters are combined with AND", func(t *testing.T) {
		st, mock := newMockStore(t)
		from := at.Add(-time.Hour)
		to := at.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta(selectColumns +
			" WHERE process_instance_id = $1 AND user_id = $2 AND timestamp >= $3 AND timestamp <= $4 ORDER BY timestamp DESC, id")).
			WithArgs("proc-1", "mrossi", from, to).
			WillReturnRows(rows())

		events, err := st.Query(context.Background(), models.Filter{
			ProcessInstanceID: "proc-1",
			UserID:            "mrossi",
			From:              &from,
			To:                &to,
		})
		require.NoError(t, err)
		assert.Len(t, events, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " WHERE user_id = $1")).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id", "process_instance_id", "event_type", "user_id", "timestamp", "details"}))

		events, err := st.Query(context.Background(), models.Filter{UserID: "nobody"})
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	st := NewInMemoryWithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	for _, e := range []*models.Event{
		{ID: id.NewAuditEventID(), ProcessInstanceID: "p1", EventType: "A", UserID: "u1"},
		{ID: id.NewAuditEventID(), ProcessInstanceID: "p1", EventType: "B", UserID: "u2"},
		{ID: id.NewAuditEventID(), ProcessInstanceID: "p2", EventType: "C", UserID: "u1"},
	} {
		require.NoError(t, st.Append(ctx, e))
	}

	all, err := st.Query(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].EventType, "newest first")
	assert.Equal(t, "A", all[2].EventType)

	both, err := st.Query(ctx, models.Filter{ProcessInstanceID: "p1", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "A", both[0].EventType)

	from := time.Date(2025, 1, 1, 9, 2, 0, 0, time.UTC)
	recent, err := st.Query(ctx, models.Filter{From: &from})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
