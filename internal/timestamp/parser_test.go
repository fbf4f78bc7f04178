package timestamp

import (
	"testing"
	"time"
)

func TestParseFromText_Syslog(t *testing.T) {
	t.Parallel()
	p := NewParser()
	p.SetYear(2024)

	result := p.ParseFromText("Jan 15 10:30:45 mail postfix/smtpd[1234]: connect from client")
	if !result.Found {
		t.Fatal("syslog prefix not parsed")
	}
	ts := result.Timestamp
	if ts.Year() != 2024 || ts.Month() != time.January || ts.Day() != 15 {
		t.Errorf("timestamp = %v, want 2024-01-15", ts)
	}
	if ts.Hour() != 10 || ts.Minute() != 30 || ts.Second() != 45 {
		t.Errorf("time of day = %v, want 10:30:45", ts)
	}
	if result.Remaining != "mail postfix/smtpd[1234]: connect from client" {
		t.Errorf("remaining = %q", result.Remaining)
	}
}

func TestParseFromText_SyslogSingleDigitDay(t *testing.T) {
	t.Parallel()
	p := NewParser()
	p.SetYear(2024)

	result := p.ParseFromText("Oct  6 08:50:12 host postfix/qmgr[100]: ABC123: removed")
	if !result.Found {
		t.Fatal("padded single-digit day not parsed")
	}
	if result.Timestamp.Day() != 6 {
		t.Errorf("day = %d, want 6", result.Timestamp.Day())
	}
}

func TestParseFromText_ISO8601(t *testing.T) {
	t.Parallel()
	p := NewParser()

	tests := []struct {
		name  string
		input string
	}{
		{"RFC3339", "2024-01-15T10:30:45Z mail message"},
		{"RFC3339Nano", "2024-01-15T10:30:45.123456789Z mail message"},
		{"space separated", "2024-01-15 10:30:45 mail message"},
		{"millis", "2024-01-15 10:30:45.123 mail message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.ParseFromText(tt.input)
			if !result.Found {
				t.Fatalf("ParseFromText(%q) did not find timestamp", tt.input)
			}
			if result.Timestamp.Year() != 2024 {
				t.Errorf("year = %d, want 2024", result.Timestamp.Year())
			}
			if result.Remaining != "mail message" {
				t.Errorf("remaining = %q, want %q", result.Remaining, "mail message")
			}
		})
	}
}

func TestParseFromText_NoTimestamp(t *testing.T) {
	t.Parallel()
	p := NewParser()

	result := p.ParseFromText("just a regular log message without a date")
	if result.Found {
		t.Error("should not find timestamp in plain text")
	}
	if result.Remaining != "just a regular log message without a date" {
		t.Errorf("remaining = %q, want original text", result.Remaining)
	}
}

func TestSetYear_ZeroRestoresDefault(t *testing.T) {
	t.Parallel()
	p := NewParser()
	p.SetYear(1999)
	p.SetYear(0)

	result := p.ParseFromText("Jan 15 10:30:45 message")
	if !result.Found {
		t.Fatal("syslog prefix not parsed")
	}
	if y := result.Timestamp.Year(); y != time.Now().Year() && y != time.Now().Year()-1 {
		t.Errorf("year = %d, want current year (or previous around rollover)", y)
	}
}
