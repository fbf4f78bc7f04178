// Package logsource provides bidirectional cursors over structured log
// records. A source owns exactly one cursor: Next and Previous share it, so
// calling Previous after Next steps backward from the current position.
package logsource

import "github.com/tinytelemetry/mailtrace/internal/model"

// RecordSource is a unified bidirectional cursor over parsed log records.
// A nil record with a nil error means the cursor hit the end (Next) or the
// start (Previous) of the available data.
type RecordSource interface {
	// Next advances one record forward.
	Next() (*model.LogRecord, error)

	// Previous steps one record backward.
	Previous() (*model.LogRecord, error)

	// GoToBeginning rewinds the cursor before the first record.
	GoToBeginning() error

	// CurrentLine returns the line number of the most recently returned
	// record; 0 means the cursor sits before the first line.
	CurrentLine() int

	// GoToLine positions the cursor on line n, so Next returns line n+1.
	GoToLine(n int) error

	// SetYear fixes the year used for record timestamps that lack one.
	SetYear(year int)

	// Path identifies the underlying log data.
	Path() string

	// Close releases the underlying resources.
	Close() error
}
