package trace

import "github.com/tinytelemetry/mailtrace/internal/model"

// seedSession builds a fresh session record carrying the caller-supplied
// facts. The session is rebuilt from the criteria on every new search.
func seedSession(c *Criteria) *model.SessionRecord {
	s := &model.SessionRecord{
		From:         c.FromAddress,
		MessageID:    c.MessageID,
		Relay:        c.RelayHost,
		Subject:      c.Subject,
		ConnectionID: c.ConnectionID,
		ProcessID:    c.ProcessID,
		Status:       c.Status,
		SentTime:     c.SentTime,
		ReceivedTime: c.ReceivedTime,
	}
	s.AddTo(c.ToAddresses...)
	return s
}

// mergeRecord folds a matching record's facts into the session. To-addresses
// are unioned; every other field is overwritten only by a defined value, so
// an earlier fact is never erased by a later record that lacks it.
func mergeRecord(s *model.SessionRecord, rec *model.LogRecord) {
	s.AddTo(rec.To...)

	if rec.From != "" {
		s.From = rec.From
	}
	if rec.MessageID != "" {
		s.MessageID = rec.MessageID
	}
	if rec.Relay != "" {
		s.Relay = rec.Relay
	}
	if rec.ConnectionID != "" {
		s.ConnectionID = rec.ConnectionID
	}
	if rec.ProcessID != "" {
		s.ProcessID = rec.ProcessID
	}
	if rec.Status != "" {
		s.Status = rec.Status
	}
	if rec.Delay != 0 {
		s.Delay = rec.Delay
	}

	// ReceivedTime comes from the first record carrying a message ID;
	// SentTime from the first record with a non-empty recipient list.
	if rec.MessageID != "" && s.ReceivedTime.IsZero() {
		s.ReceivedTime = rec.Timestamp
	}
	if len(rec.To) > 0 && s.SentTime.IsZero() {
		s.SentTime = rec.Timestamp
	}
}

// mergeStart folds the connection-start record into the session with reversed
// precedence: existing session facts win, the start record only fills gaps.
func mergeStart(s *model.SessionRecord, rec *model.LogRecord) {
	s.AddTo(rec.To...)

	if s.From == "" {
		s.From = rec.From
	}
	if s.MessageID == "" {
		s.MessageID = rec.MessageID
	}
	if s.Relay == "" {
		s.Relay = rec.Relay
	}
	if s.ConnectionID == "" {
		s.ConnectionID = rec.ConnectionID
	}
	if s.ProcessID == "" {
		s.ProcessID = rec.ProcessID
	}
	if s.Status == "" {
		s.Status = rec.Status
	}
	if s.Delay == 0 {
		s.Delay = rec.Delay
	}
}
