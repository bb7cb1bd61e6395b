// Package trainlog records impressions and RSVPs to append-only JSONL files
// for offline training of the predictor model. Writes are best-effort: a
// serving instance must not fail because a log file cannot be written, so
// every write runs through a circuit breaker that trips on repeated
// filesystem failures and the caller never sees an error.
package trainlog

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/opendoor-marketplace/matchengine/infra/breakers"
)

// ImpressionLine is one line of the impressions log.
type ImpressionLine struct {
	UserID   string             `json:"user_id"`
	OppID    string             `json:"opp_id"`
	Ts       string             `json:"ts"`
	Features map[string]float64 `json:"features"`
	Pulse    float64            `json:"pulse"`
}

// RSVPLine is one line of the RSVP events log.
type RSVPLine struct {
	UserID string `json:"user_id"`
	OppID  string `json:"opp_id"`
	Ts     string `json:"ts"`
}

// Sink is an optional durable destination for training-log records, written
// in addition to the JSONL files. Sink failures are swallowed like file
// failures.
type Sink interface {
	InsertImpression(ctx context.Context, userID, oppID string, ts time.Time, features map[string]float64, pulse float64) error
	InsertRSVP(ctx context.Context, userID, oppID string, ts time.Time) error
}

// Logger appends JSONL records to two configured file paths, tolerating
// failure. Each path gets its own breaker so a problem on one log doesn't
// suppress writes to the other.
type Logger struct {
	impressionsPath string
	eventsPath      string

	mu sync.Mutex // serializes appends within each file

	impressionsBreaker *breakers.Breaker[struct{}]
	eventsBreaker      *breakers.Breaker[struct{}]

	sink        Sink
	sinkBreaker *breakers.Breaker[struct{}]
	sinkTimeout time.Duration

	clock func() time.Time
}

// New constructs a Logger writing to the given paths. An empty path
// disables that log entirely.
func New(impressionsPath, eventsPath string, clock func() time.Time) *Logger {
	if clock == nil {
		clock = time.Now
	}
	return &Logger{
		impressionsPath:    impressionsPath,
		eventsPath:         eventsPath,
		impressionsBreaker: breakers.New[struct{}]("trainlog-impressions"),
		eventsBreaker:      breakers.New[struct{}]("trainlog-events"),
		sinkBreaker:        breakers.New[struct{}]("trainlog-sink"),
		sinkTimeout:        2 * time.Second,
		clock:              clock,
	}
}

// AttachSink adds a durable sink alongside the JSONL files.
func (l *Logger) AttachSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = s
}

func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// LogImpression appends one impression record. Failures are logged at warn
// level and otherwise swallowed.
func (l *Logger) LogImpression(userID, oppID string, features map[string]float64, pulse float64) {
	now := l.clock()
	line := ImpressionLine{
		UserID: userID, OppID: oppID,
		Ts: now.UTC().Format(time.RFC3339), Features: features, Pulse: pulse,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.impressionsPath != "" {
		_, err := l.impressionsBreaker.Execute(func() (struct{}, error) {
			return struct{}{}, appendLine(l.impressionsPath, line)
		})
		if err != nil {
			log.Warn().Err(err).Str("path", l.impressionsPath).Msg("trainlog: impression write failed")
		}
	}
	if l.sink != nil {
		_, err := l.sinkBreaker.Execute(func() (struct{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), l.sinkTimeout)
			defer cancel()
			return struct{}{}, l.sink.InsertImpression(ctx, userID, oppID, now, features, pulse)
		})
		if err != nil {
			log.Warn().Err(err).Msg("trainlog: impression sink write failed")
		}
	}
}

// LogRSVP appends one RSVP record. Failures are logged at warn level and
// otherwise swallowed.
func (l *Logger) LogRSVP(userID, oppID string) {
	now := l.clock()
	line := RSVPLine{UserID: userID, OppID: oppID, Ts: now.UTC().Format(time.RFC3339)}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eventsPath != "" {
		_, err := l.eventsBreaker.Execute(func() (struct{}, error) {
			return struct{}{}, appendLine(l.eventsPath, line)
		})
		if err != nil {
			log.Warn().Err(err).Str("path", l.eventsPath).Msg("trainlog: rsvp write failed")
		}
	}
	if l.sink != nil {
		_, err := l.sinkBreaker.Execute(func() (struct{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), l.sinkTimeout)
			defer cancel()
			return struct{}{}, l.sink.InsertRSVP(ctx, userID, oppID, now)
		})
		if err != nil {
			log.Warn().Err(err).Msg("trainlog: rsvp sink write failed")
		}
	}
}
