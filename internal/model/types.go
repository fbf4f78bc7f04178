package model

import "time"

// LogRecord represents a single parsed MTA log line.
// It is produced by a logparse dialect and consumed read-only by the trace
// engine. Empty strings and zero times mean the line did not carry that field.
type LogRecord struct {
	Timestamp    time.Time
	From         string
	To           []string // ordered as they appear on the line
	MessageID    string
	Relay        string
	ConnectionID string
	ProcessID    string
	Status       string
	Completion   string // completion text, e.g. "removed" when the queue entry is dropped
	Delay        time.Duration
	Connect      bool // line marks the start of a client connection
	Disconnect   bool // line marks the end of a client connection
	Program      string
	Line         int // physical line number in the log file
	RawLine      string
}

// SessionRecord accumulates every fact discovered about one message
// occurrence. Fields are only ever overwritten by defined values from later
// matching records; To grows by set union and never shrinks.
type SessionRecord struct {
	From           string        `json:"from,omitempty"`
	To             []string      `json:"to,omitempty"`
	MessageID      string        `json:"message_id,omitempty"`
	Relay          string        `json:"relay,omitempty"`
	Subject        string        `json:"subject,omitempty"`
	ConnectionID   string        `json:"connection_id,omitempty"`
	ProcessID      string        `json:"process_id,omitempty"`
	Status         string        `json:"status,omitempty"`
	SentTime       time.Time     `json:"sent_time,omitzero"`
	ReceivedTime   time.Time     `json:"received_time,omitzero"`
	ConnectTime    time.Time     `json:"connect_time,omitzero"`
	DisconnectTime time.Time     `json:"disconnect_time,omitzero"`
	Delay          time.Duration `json:"delay,omitempty"`
}

// HasTo reports whether addr is already part of the session's recipient set.
func (s *SessionRecord) HasTo(addr string) bool {
	for _, a := range s.To {
		if a == addr {
			return true
		}
	}
	return false
}

// AddTo unions addrs into the recipient set, preserving first-seen order.
func (s *SessionRecord) AddTo(addrs ...string) {
	for _, a := range addrs {
		if a == "" || s.HasTo(a) {
			continue
		}
		s.To = append(s.To, a)
	}
}

// TraceResult is one completed (or partially completed) trace, as persisted
// by the journal and the DuckDB store and served over the HTTP API.
type TraceResult struct {
	LogFile    string        `json:"log_file"`
	Dialect    string        `json:"dialect"`
	Found      bool          `json:"found"`
	Complete   bool          `json:"complete"` // both info phases succeeded
	Failure    string        `json:"failure,omitempty"`
	AnchorLine int           `json:"anchor_line,omitempty"`
	Session    SessionRecord `json:"session"`
	TracedAt   time.Time     `json:"traced_at"`
}
