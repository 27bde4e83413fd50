// Package reload triggers inference model reloads when the artifact file
// changes on disk or a model-updated event arrives on Kafka.
package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
)

const (
	TriggerFile  = "file"
	TriggerKafka = "kafka"

	DefaultDebounce = 500 * time.Millisecond
)

// Reloader is the part of inference.Service the triggers drive.
type Reloader interface {
	Reload(ctx context.Context, trigger string) (inference.Info, error)
	Location() string
	Model() *inference.Model
}

// Watcher reloads when the artifact file is created, written or renamed
// into place. It watches the parent directory so atomic replace-by-rename is
// seen. Bursts of events collapse into one reload after the debounce delay.
type Watcher struct {
	reloader  Reloader
	path      string
	debounce  time.Duration
	fsw       *fsnotify.Watcher
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewWatcher(r Reloader, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	path, err := filepath.Abs(r.Location())
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", r.Location(), err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		reloader: r,
		path:     path,
		debounce: debounce,
		fsw:      fsw,
		logger:   slog.Default().With("component", "model-watcher", "path", path),
	}, nil
}

// Run blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching model artifact", "debounce", w.debounce)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("artifact changed", "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		case <-timer.C:
			if _, err := w.reloader.Reload(ctx, TriggerFile); err != nil {
				w.logger.Error("reload after file change failed", "error", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}

// KafkaHandler reloads on model-updated events for the served location.
// Events for other locations, or for the model already served, are ignored.
// Reload failures are logged rather than returned, so a bad artifact does
// not stall the consumer.
func KafkaHandler(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "model-update-consumer")
	return kafka.JSONHandler(func(ctx context.Context, event artifact.UpdatedEvent) error {
		if !sameLocation(event.Location, r.Location()) {
			logger.Debug("ignoring update for another location", "location", event.Location)
			return nil
		}
		if m := r.Model(); m != nil && m.ID() == event.ModelID {
			return nil
		}
		info, err := r.Reload(ctx, TriggerKafka)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("reload after update event failed",
				"event_model_id", event.ModelID,
				"serving_model_id", info.ModelID,
				"error", err,
			)
			return nil
		}
		logger.Info("model updated from event", "model_id", info.ModelID)
		return nil
	})
}

func sameLocation(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
