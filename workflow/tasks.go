package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/sirupsen/logrus"
)

// TaskRunner runs best-effort side effects off the request path.
// Failures are logged by the runner and never reach the caller of Go.
type TaskRunner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// AsyncRunner runs each task in its own goroutine with a detached context.
// Request-scoped values such as the correlation id survive; cancellation does not.
type AsyncRunner struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewAsyncRunner(logger *logrus.Logger, timeout time.Duration) *AsyncRunner {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &AsyncRunner{Logger: logger, Timeout: timeout}
}

func (r *AsyncRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		runTask(taskCtx, r.Logger, name, fn)
	}()
}

// Wait blocks until every started task returns or ctx is done.
func (r *AsyncRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineRunner runs tasks synchronously. Used by CLI tools and tests.
type InlineRunner struct {
	Logger *logrus.Logger
}

func (r InlineRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	runTask(ctx, r.Logger, name, fn)
}

func runTask(ctx context.Context, logger *logrus.Logger, name string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			config.LogError(logger, "workflow", "runTask", "task panicked", map[string]interface{}{
				"task":  name,
				"stack": string(debug.Stack()),
			}, fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := fn(ctx); err != nil {
		config.LogError(logger, "workflow", "runTask", "task failed", map[string]interface{}{
			"task":           name,
			"correlation_id": correlationId(ctx),
		}, err)
	}
}

func correlationId(ctx context.Context) string {
	v, _ := utils.GetCorrelationIdFromContext(ctx)
	return v
}
