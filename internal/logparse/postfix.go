package logparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/model"
	"github.com/tinytelemetry/mailtrace/internal/timestamp"
)

func init() {
	Register("postfix", NewPostfix)
}

// postfixCompletion is the queue-removal text Postfix logs when a message has
// finished processing.
const postfixCompletion = "removed"

var (
	// host program[pid]: payload
	postfixHeaderRe = regexp.MustCompile(`^(\S+) ([\w./-]+)\[(\d+)\]: (.*)$`)

	// Queue IDs are uppercase hex (short format) or time-based base-52
	// without vowels (long format, enable_long_queue_ids). Keyword prefixes
	// like warning: or statistics: match neither shape. NOQUEUE prefixes
	// rejections that never got a queue entry.
	postfixQueueRe = regexp.MustCompile(`^([0-9A-F]{5,}|[0-9B-DF-HJ-NP-TV-Zb-df-hj-np-tv-z]{10,20}): (.*)$`)

	postfixFromRe   = regexp.MustCompile(`\bfrom=<([^>]*)>`)
	postfixToRe     = regexp.MustCompile(`\b(?:orig_)?to=<([^>]*)>`)
	postfixRelayRe  = regexp.MustCompile(`\brelay=([^,\s]+)`)
	postfixDelayRe  = regexp.MustCompile(`\bdelay=([0-9.]+)`)
	postfixStatusRe = regexp.MustCompile(`\bstatus=(\S+)`)
	postfixMsgIDRe  = regexp.MustCompile(`\bmessage-id=<([^>]*)>`)
)

// Postfix parses syslog-style Postfix mail logs. A message's lines are tied
// together by the queue ID, which serves as the connection identifier.
type Postfix struct {
	ts *timestamp.Parser
}

// NewPostfix creates the Postfix dialect.
func NewPostfix() Dialect {
	return &Postfix{ts: timestamp.NewParser()}
}

func (p *Postfix) Name() string { return "postfix" }

func (p *Postfix) SetYear(year int) { p.ts.SetYear(year) }

func (p *Postfix) CompletionSentinel() string { return postfixCompletion }

// Parse converts one raw Postfix log line into a record. Lines that do not
// look like Postfix output still yield a record carrying only the raw line,
// so cursor positions stay aligned with physical lines.
func (p *Postfix) Parse(line string, lineNo int) *model.LogRecord {
	rec := &model.LogRecord{Line: lineNo, RawLine: line}

	parsed := p.ts.ParseFromText(line)
	rec.Timestamp = parsed.Timestamp

	header := postfixHeaderRe.FindStringSubmatch(parsed.Remaining)
	if header == nil {
		return rec
	}
	rec.Program = header[2]
	rec.ProcessID = header[3]
	payload := header[4]

	switch {
	case strings.HasPrefix(payload, "connect from "):
		rec.Connect = true
		return rec
	case strings.HasPrefix(payload, "disconnect from "):
		rec.Disconnect = true
		return rec
	}

	queued := postfixQueueRe.FindStringSubmatch(payload)
	if queued == nil || queued[1] == "NOQUEUE" {
		return rec
	}
	rec.ConnectionID = queued[1]
	body := queued[2]

	if body == postfixCompletion {
		rec.Completion = postfixCompletion
		return rec
	}

	if m := postfixFromRe.FindStringSubmatch(body); m != nil {
		rec.From = m[1]
	}
	for _, m := range postfixToRe.FindAllStringSubmatch(body, -1) {
		if m[1] != "" {
			rec.To = append(rec.To, m[1])
		}
	}
	if m := postfixRelayRe.FindStringSubmatch(body); m != nil {
		rec.Relay = m[1]
	}
	if m := postfixDelayRe.FindStringSubmatch(body); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Delay = time.Duration(secs * float64(time.Second))
		}
	}
	if m := postfixStatusRe.FindStringSubmatch(body); m != nil {
		rec.Status = m[1]
	}
	if m := postfixMsgIDRe.FindStringSubmatch(body); m != nil {
		rec.MessageID = m[1]
	}
	return rec
}
