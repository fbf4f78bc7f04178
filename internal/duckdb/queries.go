package duckdb

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/model"
)

// TotalTraceCount returns the number of stored trace results.
func (s *Store) TotalTraceCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM traces").Scan(&n)
	return n, err
}

// CountsByStatus returns trace counts grouped by delivery status. Traces
// without a status are grouped under "unknown".
func (s *Store) CountsByStatus() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT coalesce(status, 'unknown'), count(*)
		FROM traces
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// RecentTraces returns the most recent trace results, newest first,
// optionally filtered by delivery status.
func (s *Store) RecentTraces(limit int, status string) ([]model.TraceResult, error) {
	if limit <= 0 {
		limit = model.DefaultTraceLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `
		SELECT traced_at, log_file, dialect, found, complete, failure, anchor_line,
		       from_address, to_addresses, message_id, relay, subject,
		       connection_id, process_id, status,
		       sent_time, received_time, connect_time, disconnect_time, delay_ms
		FROM traces`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY traced_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TraceResult
	for rows.Next() {
		res, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanTrace(rows *sql.Rows) (model.TraceResult, error) {
	var (
		res        model.TraceResult
		failure    sql.NullString
		anchor     sql.NullInt64
		from       sql.NullString
		to         sql.NullString
		messageID  sql.NullString
		relay      sql.NullString
		subject    sql.NullString
		connID     sql.NullString
		processID  sql.NullString
		status     sql.NullString
		sent       sql.NullTime
		received   sql.NullTime
		connect    sql.NullTime
		disconnect sql.NullTime
		delayMS    sql.NullInt64
	)

	err := rows.Scan(
		&res.TracedAt, &res.LogFile, &res.Dialect, &res.Found, &res.Complete,
		&failure, &anchor, &from, &to, &messageID, &relay, &subject,
		&connID, &processID, &status, &sent, &received, &connect, &disconnect, &delayMS,
	)
	if err != nil {
		return res, err
	}

	res.Failure = failure.String
	res.AnchorLine = int(anchor.Int64)
	res.Session = model.SessionRecord{
		From:           from.String,
		MessageID:      messageID.String,
		Relay:          relay.String,
		Subject:        subject.String,
		ConnectionID:   connID.String,
		ProcessID:      processID.String,
		Status:         status.String,
		SentTime:       sent.Time,
		ReceivedTime:   received.Time,
		ConnectTime:    connect.Time,
		DisconnectTime: disconnect.Time,
		Delay:          time.Duration(delayMS.Int64) * time.Millisecond,
	}
	if to.Valid && to.String != "" {
		var addrs []string
		if err := json.Unmarshal([]byte(to.String), &addrs); err == nil {
			res.Session.To = addrs
		}
	}
	return res, nil
}
