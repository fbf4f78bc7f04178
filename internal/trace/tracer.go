// Package trace implements the correlation engine that reconstructs one mail
// transaction from scattered MTA log lines. A Tracer owns a single
// bidirectional cursor and an accumulating session record; FindMessage
// locates the first matching record and FindMessageInfo extends the match
// backward to the connection start and forward to the completion sentinel.
package trace

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/logparse"
	"github.com/tinytelemetry/mailtrace/internal/logsource"
	"github.com/tinytelemetry/mailtrace/internal/model"
)

// Options configure a Tracer. LogFile is required unless Source injects a
// ready-made record source (used by tests and alternate log dialects).
type Options struct {
	LogFile  string
	Dialect  string // registered dialect name; defaults to model.DefaultDialect
	Year     int    // year hint for timestamps that lack one; 0 = current year
	Criteria Criteria

	// Source overrides the lazily opened file source when set.
	Source logsource.RecordSource
}

// Tracer reconstructs the lifecycle of one email transaction. It is not safe
// for concurrent use: the cursor and the session record are exclusively owned.
type Tracer struct {
	logFile     string
	dialectName string
	year        int
	sentinel    string

	criteria Criteria
	session  *model.SessionRecord
	source   logsource.RecordSource
	anchor   int
}

// New creates a Tracer bound to a log file. The file must exist and be
// readable and the dialect must be registered; either failure aborts
// construction. The record source itself is opened lazily on first search.
func New(opts Options) (*Tracer, error) {
	t := &Tracer{
		logFile:     opts.LogFile,
		dialectName: opts.Dialect,
		year:        opts.Year,
		source:      opts.Source,
	}
	if t.dialectName == "" {
		t.dialectName = model.DefaultDialect
	}
	t.criteria.Merge(opts.Criteria)
	t.session = seedSession(&t.criteria)

	if t.source != nil {
		if t.logFile == "" {
			t.logFile = t.source.Path()
		}
		if opts.Year > 0 {
			t.source.SetYear(opts.Year)
		}
		// An injected source bypasses the registry; fall back to the default
		// dialect's sentinel when the name is unknown.
		if dialect, err := logparse.Lookup(t.dialectName); err == nil {
			t.sentinel = dialect.CompletionSentinel()
		} else if dialect, err := logparse.Lookup(model.DefaultDialect); err == nil {
			t.sentinel = dialect.CompletionSentinel()
		}
		return t, nil
	}

	if t.logFile == "" {
		return nil, fmt.Errorf("%w: log file not specified", ErrInvalidParameter)
	}
	dialect, err := logparse.Lookup(t.dialectName)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown dialect %q", ErrInvalidParameter, t.dialectName)
	}
	t.sentinel = dialect.CompletionSentinel()

	f, err := os.Open(t.logFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogFile, err)
	}
	f.Close()

	return t, nil
}

// FindMessage merges args into the criteria and scans forward from the
// current cursor position (or the beginning, when args.FromStart is set) for
// the first record matching every defined criterion. On a match the record's
// facts are folded into a freshly seeded session record.
func (t *Tracer) FindMessage(args Criteria) (bool, error) {
	t.criteria.Merge(args)
	if !t.criteria.AnyDefined() {
		return false, ErrNoCriteria
	}
	if err := t.ensureSource(); err != nil {
		return false, err
	}
	if args.FromStart {
		if err := t.source.GoToBeginning(); err != nil {
			return false, err
		}
	}

	t.session = seedSession(&t.criteria)
	t.anchor = 0

	for {
		rec, err := t.source.Next()
		if err != nil {
			return false, err
		}
		if rec == nil {
			return false, nil
		}
		if matches(&t.criteria, rec) {
			mergeRecord(t.session, rec)
			return true, nil
		}
	}
}

// FindMessageInfo runs FindMessage, then walks backward to the connection
// start and forward to the completion sentinel, accumulating every fact the
// session's log lines carry. On success the cursor is restored to the anchor
// line (the connection-start record). Failures at either window edge return
// found=true with an IncompleteLogError: the message itself was located and
// the session keeps the partial information.
func (t *Tracer) FindMessageInfo(args Criteria) (bool, error) {
	found, err := t.FindMessage(args)
	if err != nil || !found {
		return false, err
	}

	tracked, err := t.findStart()
	if err != nil {
		return errors.Is(err, ErrIncompleteLog), err
	}
	if err := t.findEnd(tracked); err != nil {
		return errors.Is(err, ErrIncompleteLog), err
	}
	if err := t.source.GoToLine(t.anchor); err != nil {
		return false, err
	}
	return true, nil
}

// findStart scans backward for the connection-start record. Connection-id
// matches retune the tracked process id along the way, because process ids
// are recycled across unrelated connections while the connection id is
// stable. A connect marker is accepted as the session start when its process
// id equals the tracked one, or when no process id has been tracked yet.
func (t *Tracer) findStart() (string, error) {
	tracked := t.criteria.ProcessID
	connID := t.session.ConnectionID

	for {
		rec, err := t.source.Previous()
		if err != nil {
			return "", err
		}
		if rec == nil {
			return "", &IncompleteLogError{Reason: ErrStartPredatesLog, Line: t.source.CurrentLine()}
		}

		if connID != "" && rec.ConnectionID == connID {
			tracked = rec.ProcessID
		}
		if rec.Connect && (tracked == "" || rec.ProcessID == tracked) {
			t.session.ConnectTime = rec.Timestamp
			mergeStart(t.session, rec)
			if rec.ProcessID != "" {
				tracked = rec.ProcessID
			}
			t.anchor = t.source.CurrentLine()
			return tracked, nil
		}
	}
}

// findEnd scans forward from the start record, folding in every record with
// the session's connection id, until the completion sentinel. A disconnect
// marker from the tracked process sets DisconnectTime without ending the
// phase; disconnection and queue removal are logged independently.
func (t *Tracer) findEnd(tracked string) error {
	connID := t.session.ConnectionID

	for {
		rec, err := t.source.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return &IncompleteLogError{Reason: ErrEndPredatesLog, Line: t.source.CurrentLine()}
		}

		if rec.Disconnect && tracked != "" && rec.ProcessID == tracked {
			t.session.DisconnectTime = rec.Timestamp
		}
		if connID != "" && rec.ConnectionID == connID {
			mergeRecord(t.session, rec)
			if rec.Completion != "" && rec.Completion == t.sentinel {
				return nil
			}
		}
	}
}

// ensureSource lazily opens the record source on first search.
func (t *Tracer) ensureSource() error {
	if t.source != nil {
		return nil
	}
	if t.dialectName == "" {
		return ErrUnimplemented
	}
	dialect, err := logparse.Lookup(t.dialectName)
	if err != nil {
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalidParameter, t.dialectName)
	}
	src, err := logsource.Open(t.logFile, dialect)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogFile, err)
	}
	if t.year > 0 {
		src.SetYear(t.year)
	}
	t.source = src
	return nil
}

// Clear resets the criteria and the session record for a fresh search while
// keeping the record source open, so repeated searches against the same log
// skip the reopen cost.
func (t *Tracer) Clear() {
	t.criteria = Criteria{}
	t.session = &model.SessionRecord{}
	t.anchor = 0
}

// Close releases the record source. The Tracer may be reused; the source
// reopens lazily on the next search.
func (t *Tracer) Close() error {
	if t.source == nil {
		return nil
	}
	err := t.source.Close()
	t.source = nil
	return err
}

// Describe returns the textual representation "<dialect> File: <path>".
func (t *Tracer) Describe() string {
	return fmt.Sprintf("%s File: %s", t.dialectName, t.logFile)
}

// IsOpen reports whether a record source is currently open.
func (t *Tracer) IsOpen() bool { return t.source != nil }

// LogPath returns the bound log file path.
func (t *Tracer) LogPath() string { return t.logFile }

// AnchorLine returns the line number of the discovered connection-start
// record, or 0 when no full trace has completed.
func (t *Tracer) AnchorLine() int { return t.anchor }

// Record returns a copy of the accumulated session record.
func (t *Tracer) Record() model.SessionRecord {
	s := *t.session
	s.To = append([]string(nil), t.session.To...)
	return s
}

// Accessors mirroring the session record fields.

func (t *Tracer) FromAddress() string       { return t.session.From }
func (t *Tracer) ToAddresses() []string     { return append([]string(nil), t.session.To...) }
func (t *Tracer) MessageID() string         { return t.session.MessageID }
func (t *Tracer) Subject() string           { return t.session.Subject }
func (t *Tracer) RelayHost() string         { return t.session.Relay }
func (t *Tracer) ConnectionID() string      { return t.session.ConnectionID }
func (t *Tracer) ProcessID() string         { return t.session.ProcessID }
func (t *Tracer) Status() string            { return t.session.Status }
func (t *Tracer) SentTime() time.Time       { return t.session.SentTime }
func (t *Tracer) ReceivedTime() time.Time   { return t.session.ReceivedTime }
func (t *Tracer) ConnectTime() time.Time    { return t.session.ConnectTime }
func (t *Tracer) DisconnectTime() time.Time { return t.session.DisconnectTime }
func (t *Tracer) Delay() time.Duration      { return t.session.Delay }

// Result snapshots the current session as a persistable TraceResult.
func (t *Tracer) Result(found bool, traceErr error) model.TraceResult {
	res := model.TraceResult{
		LogFile:    t.logFile,
		Dialect:    t.dialectName,
		Found:      found,
		Complete:   found && traceErr == nil,
		AnchorLine: t.anchor,
		Session:    t.Record(),
		TracedAt:   time.Now(),
	}
	if traceErr != nil {
		res.Failure = traceErr.Error()
	}
	return res
}
