package links

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/httpx"
)

const DefaultClickTimeout = 5 * time.Second

// ClickTracker counts a redirect against a code.
type ClickTracker interface {
	RecordClick(ctx context.Context, code string) error
}

// ClickRecorder applies click increments off the request path. Redirects never
// wait on it; shutdown does, through Wait.
type ClickRecorder struct {
	tracker ClickTracker
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ClickRecorderConfig holds configuration for the click recorder.
type ClickRecorderConfig struct {
	Tracker ClickTracker
	Logger  *slog.Logger
	Timeout time.Duration // per increment (default: 5s)
}

// NewClickRecorder creates a new ClickRecorder.
func NewClickRecorder(cfg ClickRecorderConfig) *ClickRecorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultClickTimeout
	}

	return &ClickRecorder{
		tracker: cfg.Tracker,
		logger:  logger,
		timeout: timeout,
	}
}

// Record starts the increment for code and returns immediately. The increment
// keeps ctx's values but not its cancellation, so it outlives the request.
// Once Close has been called, Record drops the click and logs it.
func (r *ClickRecorder) Record(ctx context.Context, code string) {
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "click not recorded, recorder closed",
			"code", code,
			"request_id", httpx.GetRequestID(ctx),
		)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		err := r.tracker.RecordClick(ctx, code)
		if err == nil {
			return
		}

		attrs := []any{
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
			"operation", errx.OpOf(err),
			"code", code,
			"request_id", httpx.GetRequestID(ctx),
		}
		if errx.Is(err, errx.NotFound) {
			// Deleted between lookup and increment; the redirect already went out.
			r.logger.WarnContext(ctx, "click not recorded, link gone", attrs...)
			return
		}
		r.logger.ErrorContext(ctx, "failed to record click", attrs...)
	}()
}

// Wait blocks until every started increment has finished. Callers must not
// Record concurrently; shutdown uses Close instead.
func (r *ClickRecorder) Wait() {
	r.wg.Wait()
}

// Close stops accepting increments and waits for the started ones. Handlers
// still running after a forced server close can call Record safely.
func (r *ClickRecorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}
