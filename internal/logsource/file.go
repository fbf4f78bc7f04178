package logsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tinytelemetry/mailtrace/internal/logparse"
	"github.com/tinytelemetry/mailtrace/internal/model"
)

// ErrLineOutOfRange is returned by GoToLine when the requested line lies
// beyond the end of the log.
var ErrLineOutOfRange = errors.New("logsource: line beyond end of log")

// FileSource is a RecordSource over a log file on disk. It remembers the
// byte offset of every line start it has passed, which is what makes
// Previous and GoToLine cheap seeks instead of full rescans.
type FileSource struct {
	f       *os.File
	r       *bufio.Reader
	dialect logparse.Dialect
	path    string

	// offsets[i] is the byte offset where line i+1 starts. offsets[0] is
	// always 0; entries are appended as the cursor first passes each line.
	offsets []int64

	// cur is the line number of the most recently returned record.
	cur int

	// head is the byte offset of line cur+1, where the reader sits.
	head int64
}

// Open creates a FileSource over path using the given dialect.
func Open(path string, dialect logparse.Dialect) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logsource: open %s: %w", path, err)
	}
	return &FileSource{
		f:       f,
		r:       bufio.NewReader(f),
		dialect: dialect,
		path:    path,
		offsets: []int64{0},
	}, nil
}

// Next advances one record forward, or returns (nil, nil) at end-of-data.
func (s *FileSource) Next() (*model.LogRecord, error) {
	line, err := s.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("logsource: read %s: %w", s.path, err)
	}
	if line == "" {
		return nil, nil
	}

	s.cur++
	s.head += int64(len(line))
	if len(s.offsets) == s.cur {
		s.offsets = append(s.offsets, s.head)
	}

	return s.dialect.Parse(strings.TrimRight(line, "\r\n"), s.cur), nil
}

// Previous steps one record backward, or returns (nil, nil) at start-of-data.
// After exhausting the backward direction the cursor sits before line 1.
func (s *FileSource) Previous() (*model.LogRecord, error) {
	target := s.cur - 1
	if target < 1 {
		if err := s.GoToBeginning(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.seekTo(target - 1); err != nil {
		return nil, err
	}
	return s.Next()
}

// GoToBeginning rewinds the cursor before the first record.
func (s *FileSource) GoToBeginning() error {
	return s.seekTo(0)
}

// CurrentLine returns the line number of the most recently returned record.
func (s *FileSource) CurrentLine() int { return s.cur }

// GoToLine positions the cursor on line n: CurrentLine reports n and Next
// returns line n+1. Lines already passed are reached by a direct seek;
// lines ahead of the furthest point read so far are scanned forward.
func (s *FileSource) GoToLine(n int) error {
	if n < 0 {
		return fmt.Errorf("logsource: invalid line %d", n)
	}
	if n < len(s.offsets) {
		return s.seekTo(n)
	}
	for s.cur < n {
		rec, err := s.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrLineOutOfRange
		}
	}
	return nil
}

// SetYear fixes the year used for record timestamps that lack one.
func (s *FileSource) SetYear(year int) { s.dialect.SetYear(year) }

// Path returns the log file path.
func (s *FileSource) Path() string { return s.path }

// Close releases the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// seekTo places the cursor on line n (0 = before the first line); the start
// offset of line n+1 must already be known.
func (s *FileSource) seekTo(n int) error {
	off := s.offsets[n]
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("logsource: seek %s: %w", s.path, err)
	}
	s.r.Reset(s.f)
	s.cur = n
	s.head = off
	return nil
}
