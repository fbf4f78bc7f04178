package duckdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/model"
)

// InsertTrace persists one trace result. Recipient addresses are stored as a
// JSON array; zero timestamps become NULL.
func (s *Store) InsertTrace(result *model.TraceResult) error {
	if result == nil {
		return fmt.Errorf("duckdb: nil trace result")
	}

	to, err := json.Marshal(result.Session.To)
	if err != nil {
		return fmt.Errorf("duckdb: marshal recipients: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces (
			traced_at, log_file, dialect, found, complete, failure, anchor_line,
			from_address, to_addresses, message_id, relay, subject,
			connection_id, process_id, status,
			sent_time, received_time, connect_time, disconnect_time, delay_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.TracedAt, result.LogFile, result.Dialect,
		result.Found, result.Complete, nullString(result.Failure), result.AnchorLine,
		nullString(result.Session.From), string(to), nullString(result.Session.MessageID),
		nullString(result.Session.Relay), nullString(result.Session.Subject),
		nullString(result.Session.ConnectionID), nullString(result.Session.ProcessID),
		nullString(result.Session.Status),
		nullTime(result.Session.SentTime), nullTime(result.Session.ReceivedTime),
		nullTime(result.Session.ConnectTime), nullTime(result.Session.DisconnectTime),
		result.Session.Delay.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("duckdb: insert trace: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
