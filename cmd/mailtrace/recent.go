package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tinytelemetry/mailtrace/internal/model"
	"github.com/tinytelemetry/mailtrace/internal/socketrpc"
)

// runRecent lists recent traces from a running mailtraced over its Unix
// socket.
func runRecent(socketPath string, limit int, status string, jsonOutput bool, out io.Writer) error {
	if socketPath == "" {
		socketPath = socketrpc.DefaultSocketPath()
	}

	client, err := socketrpc.Dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	traces, err := client.RecentTraces(limit, status)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(traces)
	}

	printRecent(out, traces)
	return nil
}

func printRecent(out io.Writer, traces []model.TraceResult) {
	if len(traces) == 0 {
		fmt.Fprintln(out, "No traces recorded.")
		return
	}

	for _, tr := range traces {
		status := tr.Session.Status
		if status == "" {
			status = "unknown"
		}
		marker := " "
		if !tr.Complete {
			marker = "!"
		}
		fmt.Fprintf(out, "%s %s  %-8s  %s -> %s  %s\n",
			marker,
			tr.TracedAt.Format("2006-01-02 15:04:05"),
			status,
			valueOr(tr.Session.From, "?"),
			valueOr(strings.Join(tr.Session.To, ","), "?"),
			tr.Session.MessageID,
		)
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
