package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/mailtrace/internal/duckdb"
	"github.com/tinytelemetry/mailtrace/internal/journal"
	"github.com/tinytelemetry/mailtrace/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testMailLog = `Oct  6 08:50:12 mail postfix/smtpd[1234]: connect from client.example.com[192.0.2.1]
Oct  6 08:50:13 mail postfix/smtpd[1234]: 4F9D2A1B3C: client=client.example.com[192.0.2.1]
Oct  6 08:50:13 mail postfix/cleanup[1240]: 4F9D2A1B3C: message-id=<abc@example.com>
Oct  6 08:50:13 mail postfix/qmgr[100]: 4F9D2A1B3C: from=<alice@example.com>, size=2531, nrcpt=1 (queue active)
Oct  6 08:50:14 mail postfix/smtpd[1234]: disconnect from client.example.com[192.0.2.1]
Oct  6 08:50:14 mail postfix/smtp[1300]: 4F9D2A1B3C: to=<bob@example.net>, relay=mx.example.net[198.51.100.2]:25, delay=0.52, status=sent (250 2.0.0 OK)
Oct  6 08:50:15 mail postfix/qmgr[100]: 4F9D2A1B3C: removed
`

func newTestServer(t *testing.T) (*Server, *duckdb.Store, *gin.Engine) {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.jsonl"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { jnl.Close() })

	srv := NewServer("", store, jnl)
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/api/health", srv.handleHealth)
	r.GET("/api/schema", srv.handleSchema)
	r.GET("/api/traces", srv.handleTraces)
	r.POST("/api/trace", srv.handleTrace)

	return srv, store, r
}

func writeMailLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mail.log")
	if err := os.WriteFile(path, []byte(testMailLog), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func postJSON(t *testing.T, r *gin.Engine, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestServeReturnsOnStop(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	srv := NewServer("127.0.0.1:0", store, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	// The listener must be live before Stop.
	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil on clean shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestSchemaEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("schema status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestTraceEndpoint_FullTrace(t *testing.T) {
	_, store, r := newTestServer(t)
	logPath := writeMailLog(t)

	body, _ := json.Marshal(TraceRequest{
		LogFile:   logPath,
		Year:      2024,
		MessageID: "abc@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("trace status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var result model.TraceResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.Found {
		t.Error("result.Found = false, want true")
	}
	if !result.Complete {
		t.Errorf("result.Complete = false, failure: %q", result.Failure)
	}
	if result.Session.From != "alice@example.com" {
		t.Errorf("From = %q, want alice@example.com", result.Session.From)
	}
	if result.Session.Status != "sent" {
		t.Errorf("Status = %q, want sent", result.Session.Status)
	}

	// The trace must have been persisted to the store.
	count, err := store.TotalTraceCount()
	if err != nil {
		t.Fatalf("TotalTraceCount: %v", err)
	}
	if count != 1 {
		t.Errorf("stored trace count = %d, want 1", count)
	}
}

func TestTraceEndpoint_TruncatedLogPartial(t *testing.T) {
	_, store, r := newTestServer(t)

	// Drop the removal line so the forward phase runs off the log.
	truncated := strings.TrimSuffix(testMailLog, "Oct  6 08:50:15 mail postfix/qmgr[100]: 4F9D2A1B3C: removed\n")
	logPath := filepath.Join(t.TempDir(), "mail.log")
	if err := os.WriteFile(logPath, []byte(truncated), 0644); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(TraceRequest{
		LogFile:   logPath,
		Year:      2024,
		MessageID: "abc@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("trace status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var result model.TraceResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.Found {
		t.Error("result.Found = false, want true for a partial trace")
	}
	if result.Complete {
		t.Error("result.Complete = true, want false for a truncated window")
	}
	if result.Failure == "" {
		t.Error("result.Failure is empty, want the window failure recorded")
	}
	if result.Session.Status != "sent" {
		t.Errorf("partial Status = %q, want sent", result.Session.Status)
	}

	// The partial trace is persisted like a complete one.
	recent, err := store.RecentTraces(1, "")
	if err != nil {
		t.Fatalf("RecentTraces: %v", err)
	}
	if len(recent) != 1 || !recent[0].Found {
		t.Fatalf("stored trace = %+v, want one found trace", recent)
	}
}

func TestTraceEndpoint_CommitsJournal(t *testing.T) {
	srv, _, r := newTestServer(t)
	logPath := writeMailLog(t)

	body, _ := json.Marshal(TraceRequest{
		LogFile:   logPath,
		Year:      2024,
		MessageID: "abc@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("trace status = %d; body: %s", w.Code, w.Body.String())
	}

	if got := srv.journal.Committed(); got != 1 {
		t.Errorf("journal committed = %d, want 1", got)
	}
}

func TestTraceEndpoint_NotFound(t *testing.T) {
	_, _, r := newTestServer(t)
	logPath := writeMailLog(t)

	body, _ := json.Marshal(TraceRequest{
		LogFile:   logPath,
		Year:      2024,
		MessageID: "nobody@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("trace status = %d; body: %s", w.Code, w.Body.String())
	}

	var result model.TraceResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Found {
		t.Error("result.Found = true, want false")
	}
}

func TestTraceEndpoint_MissingLogFile(t *testing.T) {
	_, _, r := newTestServer(t)

	w := postJSON(t, r, "/api/trace", `{"message_id": "abc@example.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("trace status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTraceEndpoint_NoCriteria(t *testing.T) {
	_, _, r := newTestServer(t)
	logPath := writeMailLog(t)

	body, _ := json.Marshal(TraceRequest{LogFile: logPath, Year: 2024})
	w := postJSON(t, r, "/api/trace", string(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("trace status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestTraceEndpoint_UnreadableLog(t *testing.T) {
	_, _, r := newTestServer(t)

	body, _ := json.Marshal(TraceRequest{
		LogFile:   filepath.Join(t.TempDir(), "nope.log"),
		MessageID: "abc@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("trace status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTraceEndpoint_UnknownDialect(t *testing.T) {
	_, _, r := newTestServer(t)
	logPath := writeMailLog(t)

	body, _ := json.Marshal(TraceRequest{
		LogFile:   logPath,
		Dialect:   "exim9",
		MessageID: "abc@example.com",
	})
	w := postJSON(t, r, "/api/trace", string(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("trace status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTracesEndpoint_Recent(t *testing.T) {
	_, store, r := newTestServer(t)

	for _, status := range []string{"sent", "bounced", "sent"} {
		result := &model.TraceResult{
			LogFile: "/var/log/mail.log",
			Dialect: "postfix",
			Found:   true,
			Session: model.SessionRecord{
				MessageID: "m@example.com",
				Status:    status,
			},
			TracedAt: time.Now(),
		}
		if err := store.InsertTrace(result); err != nil {
			t.Fatalf("InsertTrace: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/traces?status=sent", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("traces status = %d; body: %s", w.Code, w.Body.String())
	}

	var body struct {
		Count  int                 `json:"count"`
		Traces []model.TraceResult `json:"traces"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal traces: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestTracesEndpoint_BadLimit(t *testing.T) {
	_, _, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/traces?limit=zero", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("traces status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTraceEndpoint_WrongMethod(t *testing.T) {
	_, _, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/trace", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("trace GET status = %d, want 405 or 404", w.Code)
	}
}
