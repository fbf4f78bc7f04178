package trace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// A realistic Postfix window: two interleaved deliveries, where the sought
// message (queue id 4F9D2A1B3C) shares its smtpd process with nothing else
// but sits between lines of an unrelated message.
const postfixTestLog = `Oct  6 08:50:10 mail postfix/smtpd[2222]: connect from other.example.org[203.0.113.5]
Oct  6 08:50:11 mail postfix/smtpd[2222]: 7E1B3C4D5E: client=other.example.org[203.0.113.5]
Oct  6 08:50:12 mail postfix/smtpd[1234]: connect from client.example.com[192.0.2.1]
Oct  6 08:50:13 mail postfix/smtpd[1234]: 4F9D2A1B3C: client=client.example.com[192.0.2.1]
Oct  6 08:50:13 mail postfix/cleanup[1240]: 4F9D2A1B3C: message-id=<abc@example.com>
Oct  6 08:50:13 mail postfix/qmgr[100]: 4F9D2A1B3C: from=<alice@example.com>, size=2531, nrcpt=1 (queue active)
Oct  6 08:50:14 mail postfix/smtpd[1234]: disconnect from client.example.com[192.0.2.1]
Oct  6 08:50:14 mail postfix/smtp[1300]: 4F9D2A1B3C: to=<bob@example.net>, relay=mx.example.net[198.51.100.2]:25, delay=0.52, status=sent (250 2.0.0 OK)
Oct  6 08:50:15 mail postfix/qmgr[100]: 7E1B3C4D5E: removed
Oct  6 08:50:15 mail postfix/qmgr[100]: 4F9D2A1B3C: removed
`

func writePostfixLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mail.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPostfixTrace_FullLifecycle(t *testing.T) {
	t.Parallel()
	path := writePostfixLog(t, postfixTestLog)

	tr, err := New(Options{LogFile: path, Year: 2024})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	if tr.IsOpen() {
		t.Error("source must be opened lazily, not at construction")
	}

	found, err := tr.FindMessageInfo(Criteria{MessageID: "abc@example.com"})
	if err != nil {
		t.Fatalf("FindMessageInfo: %v", err)
	}
	if !found {
		t.Fatal("message not found")
	}
	if !tr.IsOpen() {
		t.Error("source should be open after a search")
	}

	if got := tr.FromAddress(); got != "alice@example.com" {
		t.Errorf("from = %q", got)
	}
	if to := tr.ToAddresses(); len(to) != 1 || to[0] != "bob@example.net" {
		t.Errorf("to = %v", to)
	}
	if got := tr.ConnectionID(); got != "4F9D2A1B3C" {
		t.Errorf("connection id = %q", got)
	}
	if got := tr.RelayHost(); got != "mx.example.net[198.51.100.2]:25" {
		t.Errorf("relay = %q", got)
	}
	if got := tr.Status(); got != "sent" {
		t.Errorf("status = %q", got)
	}
	if got := tr.Delay(); got != 520*time.Millisecond {
		t.Errorf("delay = %v", got)
	}

	// Session boundaries come from the smtpd process 1234, not from the
	// unrelated session on process 2222.
	if h := tr.ConnectTime().Hour()*3600 + tr.ConnectTime().Minute()*60 + tr.ConnectTime().Second(); h != 8*3600+50*60+12 {
		t.Errorf("connect time = %v, want 08:50:12", tr.ConnectTime())
	}
	if s := tr.DisconnectTime().Second(); s != 14 {
		t.Errorf("disconnect time = %v, want 08:50:14", tr.DisconnectTime())
	}

	// Anchor is the connect line of this session (line 3).
	if got := tr.AnchorLine(); got != 3 {
		t.Errorf("anchor = %d, want 3", got)
	}

	if got := tr.Describe(); got != "postfix File: "+path {
		t.Errorf("Describe = %q", got)
	}
}

func TestPostfixTrace_RepeatedSearchesShareSource(t *testing.T) {
	t.Parallel()
	path := writePostfixLog(t, postfixTestLog)

	tr, err := New(Options{LogFile: path, Year: 2024})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	found, err := tr.FindMessageInfo(Criteria{MessageID: "abc@example.com"})
	if err != nil || !found {
		t.Fatalf("first trace = %v, %v", found, err)
	}

	tr.Clear()
	if !tr.IsOpen() {
		t.Fatal("Clear closed the source")
	}

	// The other message is reachable after rewinding.
	found, err = tr.FindMessageInfo(Criteria{ConnectionID: "7E1B3C4D5E", FromStart: true})
	if err != nil || !found {
		t.Fatalf("second trace = %v, %v", found, err)
	}
	if got := tr.ConnectionID(); got != "7E1B3C4D5E" {
		t.Errorf("connection id = %q", got)
	}
	if got := tr.AnchorLine(); got != 1 {
		t.Errorf("anchor = %d, want 1", got)
	}
}

func TestPostfixTrace_TruncatedWindow(t *testing.T) {
	t.Parallel()
	lines := []byte(postfixTestLog)

	// Drop the final removal line: forward phase runs off the end.
	truncated := string(lines[:len(lines)-len("Oct  6 08:50:15 mail postfix/qmgr[100]: 4F9D2A1B3C: removed\n")])
	path := writePostfixLog(t, truncated)

	tr, err := New(Options{LogFile: path, Year: 2024})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	found, err := tr.FindMessageInfo(Criteria{MessageID: "abc@example.com"})
	if !found || !errors.Is(err, ErrEndPredatesLog) {
		t.Fatalf("got %v, %v; want found with ErrEndPredatesLog", found, err)
	}
	// Facts gathered before the edge survive.
	if got := tr.Status(); got != "sent" {
		t.Errorf("partial status = %q, want sent", got)
	}
}

func TestNew_ConstructionErrors(t *testing.T) {
	t.Parallel()
	logPath := writePostfixLog(t, postfixTestLog)

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"missing log file option", Options{}, ErrInvalidParameter},
		{"unknown dialect", Options{LogFile: logPath, Dialect: "exim9"}, ErrInvalidParameter},
		{"unreadable log", Options{LogFile: filepath.Join(t.TempDir(), "nope.log")}, ErrLogFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("New err = %v, want %v", err, tt.want)
			}
			if tr != nil {
				t.Error("failed construction must not return a usable Tracer")
			}
		})
	}
}
