package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tinytelemetry/mailtrace/internal/journal"
	"github.com/tinytelemetry/mailtrace/internal/model"
	"github.com/tinytelemetry/mailtrace/internal/trace"
)

// flagCriteria carries the criteria-shaped command line flags.
type flagCriteria struct {
	From         string
	To           []string
	MessageID    string
	Relay        string
	ConnectionID string
	ProcessID    string
	Status       string
}

// buildCriteria layers the command line flags over an optional criteria file.
func buildCriteria(criteriaPath string, flags flagCriteria) (trace.Criteria, error) {
	var crit trace.Criteria
	if criteriaPath != "" {
		fileCrit, err := loadCriteriaFile(criteriaPath)
		if err != nil {
			return crit, err
		}
		crit = fileCrit
	}

	crit.Merge(trace.Criteria{
		FromAddress:  flags.From,
		ToAddresses:  flags.To,
		MessageID:    flags.MessageID,
		RelayHost:    flags.Relay,
		ConnectionID: flags.ConnectionID,
		ProcessID:    flags.ProcessID,
		Status:       flags.Status,
	})
	return crit, nil
}

// runTrace executes one search and writes the result to out. An incomplete
// log window is reported, not fatal: the partial session still prints.
func runTrace(cfg appConfig, crit trace.Criteria, findOnly bool, out io.Writer) error {
	tracer, err := trace.New(trace.Options{
		LogFile:  cfg.LogFile,
		Dialect:  cfg.Dialect,
		Year:     cfg.Year,
		Criteria: crit,
	})
	if err != nil {
		return err
	}
	defer tracer.Close()

	var found bool
	var traceErr error
	if findOnly {
		found, traceErr = tracer.FindMessage(trace.Criteria{})
	} else {
		found, traceErr = tracer.FindMessageInfo(trace.Criteria{})
	}
	if traceErr != nil && !errors.Is(traceErr, trace.ErrIncompleteLog) {
		return traceErr
	}

	result := tracer.Result(found, traceErr)

	if cfg.JournalPath != "" {
		if err := appendToJournal(cfg.JournalPath, &result); err != nil {
			return err
		}
	}

	if cfg.JSONOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(out, tracer, &result)
	return nil
}

func appendToJournal(path string, result *model.TraceResult) error {
	jnl, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer jnl.Close()

	_, err = jnl.Append(result)
	return err
}

func printResult(out io.Writer, tracer *trace.Tracer, result *model.TraceResult) {
	fmt.Fprintf(out, "Source:  %s\n", tracer.Describe())

	if !result.Found {
		fmt.Fprintln(out, "Result:  no matching message")
		return
	}

	if result.AnchorLine > 0 {
		fmt.Fprintf(out, "Start:   line %d\n", result.AnchorLine)
	}
	if result.Failure != "" {
		fmt.Fprintf(out, "Partial: %s\n", result.Failure)
	}
	fmt.Fprintln(out)

	s := &result.Session
	printField(out, "From", s.From)
	printField(out, "To", strings.Join(s.To, ", "))
	printField(out, "Message-ID", s.MessageID)
	printField(out, "Relay", s.Relay)
	printField(out, "Queue ID", s.ConnectionID)
	printField(out, "Process", s.ProcessID)
	printField(out, "Status", s.Status)
	printTime(out, "Connected", s.ConnectTime)
	printTime(out, "Received", s.ReceivedTime)
	printTime(out, "Sent", s.SentTime)
	printTime(out, "Disconnected", s.DisconnectTime)
	if s.Delay > 0 {
		printField(out, "Delay", s.Delay.String())
	}
}

func printField(out io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(out, "  %-13s %s\n", label+":", value)
}

func printTime(out io.Writer, label string, t time.Time) {
	if t.IsZero() {
		return
	}
	printField(out, label, t.Format("2006-01-02 15:04:05"))
}
