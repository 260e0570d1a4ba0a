package service

import (
	"context"
	"sync"
)

const (
	EventAssetUploaded = "asset.uploaded"
	EventAssetDeleted  = "asset.deleted"
	EventAssetShared   = "asset.shared"
)

// Notifier is an outbound event sink.
type Notifier interface {
	Notify(ctx context.Context, event string, data map[string]interface{}) error
}

// MultiNotifier fans each event out to every sink concurrently. Sink errors
// are logged; Notify itself always succeeds.
type MultiNotifier struct {
	sinks  []Notifier
	logger Logger
}

func NewMultiNotifier(logger Logger, sinks ...Notifier) *MultiNotifier {
	m := &MultiNotifier{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiNotifier) Notify(ctx context.Context, event string, data map[string]interface{}) error {
	var wg sync.WaitGroup
	for _, sink := range m.sinks {
		wg.Add(1)
		go func(sink Notifier) {
			defer wg.Done()
			if err := sink.Notify(ctx, event, data); err != nil {
				m.logger.WarningWithContextf(ctx, "[Notify] Sink failed for %s: %v", event, err)
			}
		}(sink)
	}
	wg.Wait()
	return nil
}
