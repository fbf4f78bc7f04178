package duckdb

import (
	"log"
	"sync"
	"time"
)

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	RetentionDays int
}

// RetentionCleaner periodically deletes traces older than the configured
// retention period.
type RetentionCleaner struct {
	store         *Store
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// NewRetentionCleaner starts a cleaner that deletes expired traces once an
// hour. Returns nil when retention is disabled (0 days).
func NewRetentionCleaner(store *Store, conf RetentionConfig) *RetentionCleaner {
	if conf.RetentionDays <= 0 {
		return nil
	}
	c := &RetentionCleaner{
		store:         store,
		retentionDays: conf.RetentionDays,
		done:          make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *RetentionCleaner) run() {
	defer c.wg.Done()

	c.cleanup()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *RetentionCleaner) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	ctx, cancel := c.store.queryCtx()
	defer cancel()

	res, err := c.store.db.ExecContext(ctx, "DELETE FROM traces WHERE traced_at < ?", cutoff)
	if err != nil {
		log.Printf("duckdb: retention cleanup failed: %v", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Printf("duckdb: retention removed %d traces older than %d days", n, c.retentionDays)
	}
}

// Stop terminates the cleaner and waits for the in-flight cleanup to finish.
func (c *RetentionCleaner) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
}
