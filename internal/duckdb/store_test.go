package duckdb

import (
	"testing"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTrace(messageID, status string, tracedAt time.Time) *model.TraceResult {
	return &model.TraceResult{
		LogFile:    "/var/log/mail.log",
		Dialect:    "postfix",
		Found:      true,
		Complete:   true,
		AnchorLine: 3,
		TracedAt:   tracedAt,
		Session: model.SessionRecord{
			From:         "alice@example.com",
			To:           []string{"bob@example.net", "carol@example.org"},
			MessageID:    messageID,
			Relay:        "mx.example.net[198.51.100.2]:25",
			ConnectionID: "4F9D2A1B3C",
			ProcessID:    "1234",
			Status:       status,
			ConnectTime:  tracedAt.Add(-time.Minute),
			Delay:        520 * time.Millisecond,
		},
	}
}

func TestInsertAndRecentTraces(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.InsertTrace(sampleTrace("m1@x", "sent", now.Add(-2*time.Second))); err != nil {
		t.Fatalf("InsertTrace: %v", err)
	}
	if err := store.InsertTrace(sampleTrace("m2@x", "bounced", now)); err != nil {
		t.Fatalf("InsertTrace: %v", err)
	}

	results, err := store.RecentTraces(10, "")
	if err != nil {
		t.Fatalf("RecentTraces: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d traces, want 2", len(results))
	}
	if results[0].Session.MessageID != "m2@x" {
		t.Errorf("newest first: got %q, want m2@x", results[0].Session.MessageID)
	}

	got := results[1].Session
	if got.From != "alice@example.com" {
		t.Errorf("from = %q", got.From)
	}
	if len(got.To) != 2 || got.To[0] != "bob@example.net" {
		t.Errorf("to = %v", got.To)
	}
	if got.Delay != 520*time.Millisecond {
		t.Errorf("delay = %v", got.Delay)
	}
	if got.SentTime.IsZero() == false {
		t.Errorf("unset sent time should stay zero, got %v", got.SentTime)
	}
	if got.ConnectTime.IsZero() {
		t.Error("connect time lost")
	}
}

func TestRecentTraces_StatusFilter(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	now := time.Now()
	for i, status := range []string{"sent", "bounced", "sent"} {
		if err := store.InsertTrace(sampleTrace("m@x", status, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	results, err := store.RecentTraces(10, "bounced")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Session.Status != "bounced" {
		t.Errorf("filtered results = %+v, want one bounced trace", results)
	}
}

func TestCountsByStatus(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	now := time.Now()
	for i, status := range []string{"sent", "sent", "deferred"} {
		if err := store.InsertTrace(sampleTrace("m@x", status, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.CountsByStatus()
	if err != nil {
		t.Fatal(err)
	}
	if counts["sent"] != 2 || counts["deferred"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	total, err := store.TotalTraceCount()
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestTableRowCounts(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := counts["traces"]; !ok {
		t.Errorf("row counts missing traces table: %v", counts)
	}
}

func TestInsertTrace_Nil(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if err := store.InsertTrace(nil); err == nil {
		t.Error("nil trace result should be rejected")
	}
}
