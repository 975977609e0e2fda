package upload

import (
	"context"
	"sync"
	"time"

	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"go.uber.org/zap"
)

// DefaultCleanupTimeout bounds a single background deletion.
const DefaultCleanupTimeout = 30 * time.Second

// Cleaner deletes stale files in the background. Failures are logged and
// counted, never returned.
type Cleaner struct {
	manager *Manager
	timeout time.Duration
	metrics *prometheus.Metrics
	wg      sync.WaitGroup
}

// NewCleaner creates a Cleaner deleting through manager
func NewCleaner(manager *Manager, timeout time.Duration, metrics *prometheus.Metrics) *Cleaner {
	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}
	return &Cleaner{manager: manager, timeout: timeout, metrics: metrics}
}

// Remove schedules deletion of ref. Empty references are ignored.
func (c *Cleaner) Remove(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	log := logger.FromContext(ctx)
	// keep request values but outlive the request
	ctx = context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		if err := c.manager.Delete(ctx, ref); err != nil {
			c.metrics.RecordCleanupFailure()
			log.Warn("Failed to delete stale file", zap.String("ref", ref), zap.Error(err))
			return
		}
		log.Debug("Deleted stale file", zap.String("ref", ref))
	}()
}

// Wait blocks until scheduled deletions finish or ctx is done
func (c *Cleaner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
