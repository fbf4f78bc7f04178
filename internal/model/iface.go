package model

// TraceQuerier provides read-only queries on stored trace results.
type TraceQuerier interface {
	TotalTraceCount() (int64, error)
	CountsByStatus() (map[string]int64, error)
	RecentTraces(limit int, status string) ([]TraceResult, error)
}

// SchemaQuerier provides schema introspection on the trace store.
type SchemaQuerier interface {
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// TraceWriter provides append-oriented write operations for trace results.
type TraceWriter interface {
	InsertTrace(result *TraceResult) error
}

// TraceReader is the unified read contract for the HTTP API.
type TraceReader interface {
	TraceQuerier
	SchemaQuerier
}
