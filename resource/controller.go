// Package resource bounds the memory, concurrency and storage throughput
// used by inserts.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for batches being coerced,
	// assembled or committed. Inserts reserve an estimate of their batch
	// before coercion starts. If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64 `mapstructure:"memory_limit_bytes"`

	// MaxConcurrentInserts is the maximum number of inserts that assemble
	// batches at the same time. If 0, unlimited.
	MaxConcurrentInserts int64 `mapstructure:"max_concurrent_inserts"`

	// IOLimitBytesPerSec is the maximum throughput for segment writes.
	// If 0, unlimited.
	IOLimitBytesPerSec int64 `mapstructure:"io_limit_bytes_per_sec"`
}

// Controller manages shared resources (memory, concurrency, IO).
//
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	insertSem *semaphore.Weighted // nil if unlimited

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxConcurrentInserts > 0 {
		c.insertSem = semaphore.NewWeighted(cfg.MaxConcurrentInserts)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the limits the controller was built with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireMemory attempts to reserve memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
// Requests larger than the limit are clamped to the limit so a single
// oversized batch can still proceed alone.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clamp(bytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(c.clamp(bytes)) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(c.clamp(bytes))
	}
	c.memUsed.Add(-bytes)
}

func (c *Controller) clamp(bytes int64) int64 {
	return min(bytes, c.cfg.MemoryLimitBytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireInsert reserves an insert slot. Blocks if all slots are busy.
func (c *Controller) AcquireInsert(ctx context.Context) error {
	if c == nil || c.insertSem == nil {
		return ctx.Err()
	}
	return c.insertSem.Acquire(ctx, 1)
}

// TryAcquireInsert attempts to reserve an insert slot without blocking.
func (c *Controller) TryAcquireInsert() bool {
	if c == nil || c.insertSem == nil {
		return true
	}
	return c.insertSem.TryAcquire(1)
}

// ReleaseInsert releases an insert slot.
func (c *Controller) ReleaseInsert() {
	if c == nil || c.insertSem == nil {
		return
	}
	c.insertSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than one second of budget are spread over several waits.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
