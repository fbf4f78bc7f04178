// Package logparse turns raw MTA log lines into structured records.
// Each supported log format is a Dialect registered under a stable name;
// the trace engine never depends on a concrete format.
package logparse

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tinytelemetry/mailtrace/internal/model"
)

// Dialect parses one raw log line into a LogRecord. Implementations must be
// stateless apart from the year hint and safe to reuse across lines.
type Dialect interface {
	// Name identifies the dialect in configuration and Describe output.
	Name() string

	// SetYear fixes the year used for timestamps that lack one.
	SetYear(year int)

	// Parse converts one raw line into a record. Every line yields a record;
	// fields the line does not carry stay at their zero values so the match
	// predicate can disqualify it.
	Parse(line string, lineNo int) *model.LogRecord

	// CompletionSentinel returns the completion text that marks the end of a
	// message's processing in this dialect.
	CompletionSentinel() string
}

// Factory constructs a fresh Dialect instance.
type Factory func() Dialect

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a dialect available under name. It panics when name is
// already taken; dialects register from init and a collision is a programming
// error.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("logparse: dialect %q registered twice", name))
	}
	registry[name] = factory
}

// Lookup returns a new instance of the named dialect.
func Lookup(name string) (Dialect, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("logparse: unknown dialect %q", name)
	}
	return factory(), nil
}

// Names lists the registered dialect names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
