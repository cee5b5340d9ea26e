// Package activitylog implements the optional append-only activity log:
// a best-effort, fire-and-forget record of each enrichment result pushed
// onto a Redis list. Disabled by default; never blocks or fails the
// caller.
package activitylog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Entry is the minimal summary recorded for one assemble call.
type Entry struct {
	SessionID  string    `json:"session_id"`
	Route      string    `json:"route"`
	Skipped    bool      `json:"skipped"`
	RetrievedN int       `json:"retrieved_n"`
	AssembleMs int64     `json:"assemble_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Log appends Entry values to a Redis list with RPUSH. A nil *Log is
// valid and Record becomes a no-op, so callers can hold a possibly-nil
// Log without branching.
type Log struct {
	rdb     *redis.Client
	key     string
	timeout time.Duration
	log     zerolog.Logger
}

// New constructs a Log. Returns nil if addr is empty, meaning the
// activity log is disabled.
func New(addr, password string, db int, key string, log zerolog.Logger) *Log {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if key == "" {
		key = "enrich:activity"
	}
	return &Log{rdb: rdb, key: key, timeout: 2 * time.Second, log: log.With().Str("component", "activity_log").Logger()}
}

// Record pushes entry onto the list in a detached goroutine bounded by its
// own short timeout. Failures are logged at debug level and never
// surfaced to the caller.
func (l *Log) Record(entry Entry) {
	if l == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		b, err := json.Marshal(entry)
		if err != nil {
			l.log.Debug().Err(err).Msg("marshal activity entry failed")
			return
		}
		if err := l.rdb.RPush(ctx, l.key, b).Err(); err != nil {
			l.log.Debug().Err(err).Msg("activity log rpush failed")
		}
	}()
}

// Close releases the underlying Redis client. Safe to call on a nil Log.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.rdb.Close()
}
