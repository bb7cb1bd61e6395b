package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSink(t *testing.T) (*Sink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSink(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func TestInsertImpression(t *testing.T) {
	sink, mock := newMockSink(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO impressions`).
		WithArgs("u0", "o0", ts, []byte(`{"interest":0.5}`), 62.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := sink.InsertImpression(context.Background(), "u0", "o0", ts, map[string]float64{"interest": 0.5}, 62.0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRSVP(t *testing.T) {
	sink, mock := newMockSink(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO rsvp_events`).
		WithArgs("u0", "o0", ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := sink.InsertRSVP(context.Background(), "u0", "o0", ts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountImpressions(t *testing.T) {
	sink, mock := newMockSink(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM impressions`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := sink.CountImpressions(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
