package trace

import (
	"testing"
	"time"
)

func TestCriteria_MergeKeepsEarlierFacts(t *testing.T) {
	t.Parallel()
	c := Criteria{FromAddress: "alice@example.com", MessageID: "abc@x"}

	c.Merge(Criteria{MessageID: "def@x", Status: "sent"})

	if c.FromAddress != "alice@example.com" {
		t.Error("unspecified field erased by merge")
	}
	if c.MessageID != "def@x" {
		t.Error("specified field not overwritten")
	}
	if c.Status != "sent" {
		t.Error("new field not merged")
	}
}

func TestCriteria_MergeUnionsToAddresses(t *testing.T) {
	t.Parallel()
	c := Criteria{ToAddresses: []string{"a@x", "b@x"}}
	c.Merge(Criteria{ToAddresses: []string{"b@x", "c@x"}})

	if len(c.ToAddresses) != 3 {
		t.Errorf("to = %v, want union of 3", c.ToAddresses)
	}
}

func TestCriteria_AnyDefined(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    Criteria
		want bool
	}{
		{"empty", Criteria{}, false},
		{"from start only", Criteria{FromStart: true}, false},
		{"from address", Criteria{FromAddress: "a@x"}, true},
		{"to address", Criteria{ToAddresses: []string{"b@x"}}, true},
		{"subject", Criteria{Subject: "hi"}, true},
		{"sent time", Criteria{SentTime: time.Now()}, true},
		{"process id", Criteria{ProcessID: "42"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.AnyDefined(); got != tt.want {
				t.Errorf("AnyDefined = %v, want %v", got, tt.want)
			}
		})
	}
}
