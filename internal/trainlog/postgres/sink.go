// Package postgres provides an optional durable sink for training-log
// records, for deployments that want impressions/RSVPs queryable instead of
// (or in addition to) the JSONL files internal/trainlog writes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sink persists impressions and RSVP events to Postgres.
type Sink struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSink wraps an existing *sqlx.DB. Schema is expected to already exist
// (impressions(user_id, opp_id, ts, features jsonb, pulse), rsvp_events(user_id, opp_id, ts)).
func NewSink(db *sqlx.DB, timeout time.Duration) *Sink {
	return &Sink{db: db, timeout: timeout}
}

// InsertImpression records one impression row.
func (s *Sink) InsertImpression(ctx context.Context, userID, oppID string, ts time.Time, features map[string]float64, pulse float64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	const query = `
		INSERT INTO impressions (user_id, opp_id, ts, features, pulse)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = s.db.ExecContext(ctx, query, userID, oppID, ts, featuresJSON, pulse)
	if err != nil {
		return fmt.Errorf("insert impression: %w", err)
	}
	return nil
}

// InsertRSVP records one RSVP event row.
func (s *Sink) InsertRSVP(ctx context.Context, userID, oppID string, ts time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `INSERT INTO rsvp_events (user_id, opp_id, ts) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, userID, oppID, ts)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate rsvp event: %w", err)
		}
		return fmt.Errorf("insert rsvp event: %w", err)
	}
	return nil
}

// CountImpressions returns the total number of impression rows logged
// within [from, to], for operator visibility into training-data volume.
func (s *Sink) CountImpressions(ctx context.Context, from, to time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT COUNT(*) FROM impressions WHERE ts >= $1 AND ts <= $2`
	var count int64
	err := s.db.QueryRowxContext(ctx, query, from, to).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count impressions: %w", err)
	}
	return count, nil
}
