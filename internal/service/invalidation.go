package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/pkg/jobs"
)

const (
	// JobInvalidateCache is the job type that drops cached entries by pattern.
	JobInvalidateCache = "cache.invalidate"

	// Statistics entries are keyed dash:stats:<yearID>:<version>. The version
	// counter sits outside that pattern so cleanup never resets it.
	statisticsCachePattern = "dash:stats:*"
	statisticsVersionKey   = "dash:stats-version"

	enqueueWait = 250 * time.Millisecond
)

func statisticsCacheKey(yearID, version int64) string {
	return fmt.Sprintf("dash:stats:%d:%d", yearID, version)
}

// statsInvalidator is notified after any mutation that changes dashboard figures.
type statsInvalidator interface {
	InvalidateStatistics(ctx context.Context, reason string)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateStatistics(context.Context, string) {}

func invalidatorOrNoop(inv statsInvalidator) statsInvalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

type jobQueue interface {
	Handle(jobType string, handler jobs.Handler)
	TryEnqueue(job jobs.Job) error
	Enqueue(ctx context.Context, job jobs.Job) error
}

// CacheInvalidator retires cached statistics after mutations. The version
// bump happens inline so the next read misses; deleting superseded entries is
// left to the job queue.
type CacheInvalidator struct {
	queue   jobQueue
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	seq     uint64
}

// NewCacheInvalidator registers the cleanup handler on queue.
func NewCacheInvalidator(queue jobQueue, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *CacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	inv := &CacheInvalidator{queue: queue, cache: cache, metrics: metrics, logger: logger}
	queue.Handle(JobInvalidateCache, inv.handle)
	return inv
}

// InvalidateStatistics bumps the statistics version and schedules removal of
// the entries it superseded.
func (i *CacheInvalidator) InvalidateStatistics(ctx context.Context, reason string) {
	if !i.cache.Enabled() {
		return
	}
	if _, err := i.cache.BumpVersion(ctx, statisticsVersionKey); err != nil {
		i.logger.Warn("statistics version not bumped", zap.String("reason", reason), zap.Error(err))
	} else {
		i.metrics.RecordInvalidation()
	}

	job := jobs.Job{
		ID:   fmt.Sprintf("inv-%d", atomic.AddUint64(&i.seq, 1)),
		Type: JobInvalidateCache,
		Key:  statisticsCachePattern,
	}
	err := i.queue.TryEnqueue(job)
	if errors.Is(err, jobs.ErrQueueFull) {
		waitCtx, cancel := context.WithTimeout(ctx, enqueueWait)
		err = i.queue.Enqueue(waitCtx, job)
		cancel()
	}
	if err != nil {
		i.logger.Warn("statistics cleanup not scheduled", zap.String("reason", reason), zap.Error(err))
	}
}

func (i *CacheInvalidator) handle(ctx context.Context, job jobs.Job) error {
	return i.cache.Invalidate(ctx, job.Key)
}
