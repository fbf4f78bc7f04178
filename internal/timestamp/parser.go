package timestamp

import (
	"strings"
	"time"
)

// Result is the outcome of parsing a timestamp off the front of a log line.
type Result struct {
	Timestamp time.Time
	Found     bool
	Remaining string // text after the timestamp, or the original text when not found
}

// Parser extracts timestamps from log line prefixes. Traditional syslog
// timestamps carry no year, so the parser holds an optional year hint.
type Parser struct {
	year int
	loc  *time.Location
}

// NewParser creates a parser using the local time zone and the current year
// for syslog-style timestamps until SetYear is called.
func NewParser() *Parser {
	return &Parser{loc: time.Local}
}

// SetYear fixes the year applied to timestamps that lack one. A zero or
// negative year restores the current-year default.
func (p *Parser) SetYear(year int) {
	if year <= 0 {
		p.year = 0
		return
	}
	p.year = year
}

// Year returns the configured year hint, or 0 when defaulting to the current year.
func (p *Parser) Year() int { return p.year }

// syslogLayout matches "Jan  2 15:04:05" / "Jan 12 15:04:05" prefixes.
const syslogLayout = "Jan _2 15:04:05"

// iso8601Layouts are tried in order for MTAs that log full dates.
var iso8601Layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseFromText removes a leading timestamp from text, returning the parsed
// time and the rest of the line. Plain text with no recognizable timestamp
// comes back unchanged with Found=false.
func (p *Parser) ParseFromText(text string) Result {
	if ts, rest, ok := p.parseSyslogPrefix(text); ok {
		return Result{Timestamp: ts, Found: true, Remaining: rest}
	}
	if ts, rest, ok := p.parseISOPrefix(text); ok {
		return Result{Timestamp: ts, Found: true, Remaining: rest}
	}
	return Result{Remaining: text}
}

// parseSyslogPrefix parses the classic 15-character syslog prefix and applies
// the year hint. Without a hint, a parsed time more than a day in the future
// is assumed to belong to the previous year (logs written around New Year).
func (p *Parser) parseSyslogPrefix(text string) (time.Time, string, bool) {
	if len(text) < len(syslogLayout) {
		return time.Time{}, "", false
	}
	prefix := text[:len(syslogLayout)]
	ts, err := time.ParseInLocation(syslogLayout, prefix, p.loc)
	if err != nil {
		return time.Time{}, "", false
	}

	year := p.year
	if year == 0 {
		year = time.Now().Year()
	}
	ts = time.Date(year, ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, p.loc)
	if p.year == 0 && ts.After(time.Now().Add(24*time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}

	rest := strings.TrimLeft(text[len(syslogLayout):], " ")
	return ts, rest, true
}

func (p *Parser) parseISOPrefix(text string) (time.Time, string, bool) {
	fields := strings.SplitN(text, " ", 3)
	if len(fields) == 0 {
		return time.Time{}, "", false
	}

	// Try the first field alone (RFC3339), then the first two joined
	// (space-separated date and time).
	candidates := []string{fields[0]}
	if len(fields) >= 2 {
		candidates = append(candidates, fields[0]+" "+fields[1])
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		candidate := candidates[i]
		for _, layout := range iso8601Layouts {
			ts, err := time.ParseInLocation(layout, candidate, p.loc)
			if err != nil {
				continue
			}
			rest := strings.TrimLeft(text[len(candidate):], " ")
			return ts, rest, true
		}
	}
	return time.Time{}, "", false
}
