package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// MemoryLimitBytes caps the bytes of buffered samples.
	MemoryLimitBytes int64

	// MaxWorkers caps concurrent background readers. Defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec caps volume write throughput.
	IOLimitBytesPerSec int64
}

// Budget tracks memory reservations, worker slots and IO tokens.
type Budget struct {
	cfg Config

	mem     *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workers *semaphore.Weighted
	io      *rate.Limiter // nil if unlimited
}

// New creates a Budget from cfg.
func New(cfg Config) *Budget {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	b := &Budget{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		b.mem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		b.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return b
}

// Reserve reserves n bytes without blocking.
func (b *Budget) Reserve(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.mem != nil && !b.mem.TryAcquire(n) {
		return ErrMemoryLimitExceeded
	}
	b.memUsed.Add(n)
	return nil
}

// Release returns n previously reserved bytes.
func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	if b.mem != nil {
		b.mem.Release(n)
	}
	b.memUsed.Add(-n)
}

// InUse returns the reserved bytes.
func (b *Budget) InUse() int64 {
	if b == nil {
		return 0
	}
	return b.memUsed.Load()
}

// Limit returns the memory limit in bytes, 0 if unlimited.
func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.cfg.MemoryLimitBytes
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (b *Budget) AcquireWorker(ctx context.Context) error {
	if b == nil {
		return nil
	}
	return b.workers.Acquire(ctx, 1)
}

// ReleaseWorker frees a worker slot.
func (b *Budget) ReleaseWorker() {
	if b == nil {
		return
	}
	b.workers.Release(1)
}

// WaitIO blocks until n bytes may be written. Requests larger than the burst
// are split so a single large volume cannot fail the limiter.
func (b *Budget) WaitIO(ctx context.Context, n int) error {
	if b == nil || b.io == nil {
		return nil
	}
	burst := b.io.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := b.io.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
