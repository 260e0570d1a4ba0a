package service

import (
	"context"
	"fmt"
	"sync"
)

// BackgroundRunner runs detached side effects. Tasks outlive the request
// context's cancellation, and their errors and panics only reach the log.
type BackgroundRunner struct {
	logger Logger
	wg     sync.WaitGroup
}

func NewBackgroundRunner(logger Logger) *BackgroundRunner {
	return &BackgroundRunner{logger: logger}
}

func (b *BackgroundRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.ErrorWithContextf(ctx, fmt.Errorf("panic: %v", r), "[Background] Task %s panicked: %v", name, r)
			}
		}()
		if err := fn(ctx); err != nil {
			b.logger.ErrorWithContextf(ctx, err, "[Background] Task %s failed: %v", name, err)
		}
	}()
}

// Wait blocks until every submitted task has finished.
func (b *BackgroundRunner) Wait() {
	b.wg.Wait()
}
