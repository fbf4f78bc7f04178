// Package httpserver exposes the trace engine and the trace store over a
// small JSON API.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/mailtrace/internal/journal"
	"github.com/tinytelemetry/mailtrace/internal/model"
	"github.com/tinytelemetry/mailtrace/internal/trace"
)

// TraceStore is the narrow store contract required by the HTTP API.
type TraceStore interface {
	model.TraceReader
	model.TraceWriter
}

// TraceRequest is the JSON body of POST /api/trace. LogFile is the only
// required field; everything else narrows the search.
type TraceRequest struct {
	LogFile string `json:"log_file" binding:"required"`
	Dialect string `json:"dialect"`
	Year    int    `json:"year"`

	From         string   `json:"from"`
	To           []string `json:"to"`
	MessageID    string   `json:"message_id"`
	Relay        string   `json:"relay"`
	ConnectionID string   `json:"connection_id"`
	ProcessID    string   `json:"process_id"`
	Status       string   `json:"status"`
}

// Criteria converts the request into engine search criteria.
func (r *TraceRequest) Criteria() trace.Criteria {
	return trace.Criteria{
		FromAddress:  r.From,
		ToAddresses:  r.To,
		MessageID:    r.MessageID,
		RelayHost:    r.Relay,
		ConnectionID: r.ConnectionID,
		ProcessID:    r.ProcessID,
		Status:       r.Status,
	}
}

// Server provides an HTTP API for running and querying mail traces.
type Server struct {
	addr      string
	store     TraceStore
	journal   *journal.Journal
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. The journal may be nil, in which
// case traces are written to the store only.
func NewServer(addr string, store TraceStore, jnl *journal.Journal) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    addr,
		store:   store,
		journal: jnl,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start binds the listen address and registers routes. Serve must be called
// afterwards to handle requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/schema", s.handleSchema)
	r.GET("/api/traces", s.handleTraces)
	r.POST("/api/trace", s.handleTrace)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.startTime = time.Now()
	return nil
}

// Serve runs the HTTP accept loop until Stop. It blocks, and returns nil on
// clean shutdown.
func (s *Server) Serve() error {
	err := s.server.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	traceCount, err := s.store.TotalTraceCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"uptime":      time.Since(s.startTime).String(),
		"trace_count": traceCount,
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": s.store.GetSchemaDescription(),
		"row_counts":  counts,
	})
}

func (s *Server) handleTraces(c *gin.Context) {
	limit := model.DefaultTraceLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	traces, err := s.store.RecentTraces(limit, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query traces"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"traces": traces,
		"count":  len(traces),
	})
}

func (s *Server) handleTrace(c *gin.Context) {
	var req TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing log_file field"})
		return
	}

	result, err := runTrace(&req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, trace.ErrInvalidParameter) ||
			errors.Is(err, trace.ErrNoCriteria) ||
			errors.Is(err, trace.ErrLogFile) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if err := s.persist(result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist trace"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// runTrace executes one search end to end. An incomplete window is not an
// error at this level: the partial session is still a useful answer and is
// reported through the result's failure field.
func runTrace(req *TraceRequest) (*model.TraceResult, error) {
	tracer, err := trace.New(trace.Options{
		LogFile: req.LogFile,
		Dialect: req.Dialect,
		Year:    req.Year,
	})
	if err != nil {
		return nil, err
	}
	defer tracer.Close()

	found, err := tracer.FindMessageInfo(req.Criteria())
	if err != nil && !errors.Is(err, trace.ErrIncompleteLog) {
		return nil, err
	}

	result := tracer.Result(found, err)
	return &result, nil
}

// persist writes the result through the journal first so a crash between
// journal and store is recovered by replay on the next start.
func (s *Server) persist(result *model.TraceResult) error {
	if s.journal == nil {
		return s.store.InsertTrace(result)
	}

	seq, err := s.journal.Append(result)
	if err != nil {
		return err
	}
	if err := s.store.InsertTrace(result); err != nil {
		return err
	}
	return s.journal.Commit(seq)
}
