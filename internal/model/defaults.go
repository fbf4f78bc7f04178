package model

import "time"

// Shared defaults used by both the CLI and daemon binaries.
const (
	DefaultDialect      = "postfix"
	DefaultQueryTimeout = 30 * time.Second
	DefaultTraceLimit   = 50
)
