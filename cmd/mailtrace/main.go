// Command mailtrace reconstructs the lifecycle of one email transaction from
// an MTA log file and prints the assembled session record.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var (
		configPath   string
		showVersion  bool
		criteriaPath string
		findOnly     bool

		logFile string
		dialect string
		year    int

		jsonOutput  bool
		journalPath string
		recent      int
		socketPath  string

		from         string
		to           stringList
		messageID    string
		relay        string
		connectionID string
		processID    string
		status       string
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/mailtrace/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.StringVar(&criteriaPath, "criteria-file", "", "YAML file with search criteria")
	flag.BoolVar(&findOnly, "find-only", false, "stop at the first matching line instead of tracing the full lifecycle")

	flag.StringVar(&logFile, "log-file", "", "MTA log file to search")
	flag.StringVar(&dialect, "dialect", "", "log dialect (default postfix)")
	flag.IntVar(&year, "year", 0, "year hint for timestamps without one (default current year)")

	flag.BoolVar(&jsonOutput, "json", false, "emit the trace result as JSON")
	flag.StringVar(&journalPath, "journal", "", "append the trace result to this journal file")
	flag.IntVar(&recent, "recent", 0, "list the N most recent traces from a running mailtraced instead of tracing")
	flag.StringVar(&socketPath, "socket", "", "mailtraced socket path for -recent")

	flag.StringVar(&from, "from", "", "sender address to match")
	flag.Var(&to, "to", "recipient address to match (repeatable, or comma-separated)")
	flag.StringVar(&messageID, "message-id", "", "message id to match, without angle brackets")
	flag.StringVar(&relay, "relay", "", "relay host to match")
	flag.StringVar(&connectionID, "connection-id", "", "dialect connection id to match (postfix queue id)")
	flag.StringVar(&processID, "process-id", "", "MTA process id to match")
	flag.StringVar(&status, "status", "", "delivery status to match")
	flag.Parse()

	if showVersion {
		fmt.Printf("mailtrace - MTA Log Transaction Tracer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the config file.
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if dialect != "" {
		cfg.Dialect = dialect
	}
	if year != 0 {
		cfg.Year = year
	}
	if jsonOutput {
		cfg.JSONOutput = true
	}
	if journalPath != "" {
		cfg.JournalPath = journalPath
	}

	if recent > 0 {
		if err := runRecent(socketPath, recent, status, cfg.JSONOutput, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	crit, err := buildCriteria(criteriaPath, flagCriteria{
		From:         from,
		To:           to,
		MessageID:    messageID,
		Relay:        relay,
		ConnectionID: connectionID,
		ProcessID:    processID,
		Status:       status,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runTrace(cfg, crit, findOnly, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
