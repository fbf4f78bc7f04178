package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/mailtrace/internal/backup"
	"github.com/tinytelemetry/mailtrace/internal/duckdb"
	"github.com/tinytelemetry/mailtrace/internal/httpserver"
	"github.com/tinytelemetry/mailtrace/internal/journal"
	"github.com/tinytelemetry/mailtrace/internal/model"
	"github.com/tinytelemetry/mailtrace/internal/socketrpc"
)

// runServer starts the trace store and the HTTP API.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	// Open the trace journal and catch up on traces that never reached the
	// store before the last shutdown.
	var traceJournal *journal.Journal
	if cfg.JournalEnabled {
		traceJournal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open trace journal: %w", err)
		}
		defer traceJournal.Close()
		if err := replayUncommittedJournal(traceJournal, store); err != nil {
			return fmt.Errorf("failed to replay trace journal: %w", err)
		}
	}

	// Start retention cleaner for automatic trace expiry
	retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
		RetentionDays: cfg.TraceRetention,
	})
	if retentionCleaner != nil {
		defer retentionCleaner.Stop()
	}

	// Start periodic backups when enabled.
	backupManager, err := backup.NewManager(store, backup.Config{
		Enabled:        cfg.BackupEnabled,
		Interval:       cfg.BackupInterval,
		LocalDir:       cfg.BackupLocalDir,
		KeepLast:       cfg.BackupKeepLast,
		BucketURL:      cfg.BackupBucketURL,
		S3Endpoint:     cfg.BackupS3Endpoint,
		S3Region:       cfg.BackupS3Region,
		S3AccessKey:    cfg.BackupS3AccessKey,
		S3SecretKey:    cfg.BackupS3SecretKey,
		S3SessionToken: cfg.BackupS3SessionToken,
		S3UseSSL:       cfg.BackupS3UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	if backupManager != nil {
		defer backupManager.Stop()
	}

	// Set up context and signal handling before the serve loops start.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts at signal time, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, store, traceJournal)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		g.Go(apiServer.Serve)
		g.Go(func() error {
			<-gctx.Done()
			return apiServer.Stop()
		})
	}

	// Socket RPC server for local CLI queries. A bind failure here is not
	// fatal: the HTTP API keeps serving.
	sockServer := socketrpc.NewServer(cfg.SocketPath, store)
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		g.Go(sockServer.Serve)
		g.Go(func() error {
			<-gctx.Done()
			sockServer.Stop()
			return nil
		})
	}

	printStartupBanner(cfg)

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	cancel()
	signal.Stop(sigCh)

	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "mailtrace")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "mailtraced.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func replayUncommittedJournal(j *journal.Journal, store *duckdb.Store) error {
	if j == nil {
		return nil
	}

	var maxSeq uint64
	replayed := 0

	if err := j.Replay(func(seq uint64, result *model.TraceResult) error {
		if err := store.InsertTrace(result); err != nil {
			return err
		}
		if seq > maxSeq {
			maxSeq = seq
		}
		replayed++
		return nil
	}); err != nil {
		return err
	}

	if maxSeq > 0 {
		if err := j.Commit(maxSeq); err != nil {
			return err
		}
	}
	if replayed > 0 {
		log.Printf("trace journal: replayed %d uncommitted traces", replayed)
	}
	return nil
}

func printStartupBanner(cfg appConfig) {
	var lines []string
	lines = append(lines, "")
	lines = append(lines, "mailtraced v"+version)
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("  HTTP API    %s", cfg.APIAddr))
	} else {
		lines = append(lines, "  HTTP API    disabled")
	}
	lines = append(lines, fmt.Sprintf("  Socket      %s", shortenPath(cfg.SocketPath)))
	lines = append(lines, fmt.Sprintf("  Storage     %s", shortenPath(cfg.DBPath)))
	if cfg.JournalEnabled {
		lines = append(lines, fmt.Sprintf("  Journal     %s", shortenPath(cfg.JournalPath)))
	} else {
		lines = append(lines, "  Journal     disabled")
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("  Snapshots   %s", shortenPath(cfg.BackupLocalDir)))
	} else {
		lines = append(lines, "  Snapshots   disabled")
	}
	if cfg.TraceRetention > 0 {
		lines = append(lines, fmt.Sprintf("  Retention   %d days", cfg.TraceRetention))
	} else {
		lines = append(lines, "  Retention   disabled")
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("  Config      %s", shortenPath(cfg.ConfigPath)))
	} else {
		lines = append(lines, "  Config      default (no file)")
	}

	lines = append(lines, "")
	lines = append(lines, "Press Ctrl+C to stop")
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
