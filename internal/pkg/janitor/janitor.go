package janitor

import (
	"context"
	"log/slog"
	"time"
)

// ObjectDeleter is the slice of the object store the janitor needs.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Janitor deletes orphaned uploads off the request path. Cleanup is
// best-effort: a failed or dropped deletion is logged and never surfaces
// to the caller, so it cannot mask the error that triggered it.
type Janitor struct {
	deleter ObjectDeleter
	keys    chan string
	done    chan struct{}
	timeout time.Duration
}

// New starts the worker goroutine. buffer bounds how many pending
// deletions can queue before Discard starts dropping.
func New(deleter ObjectDeleter, buffer int) *Janitor {
	j := &Janitor{
		deleter: deleter,
		keys:    make(chan string, buffer),
		done:    make(chan struct{}),
		timeout: 15 * time.Second,
	}
	go j.run()
	return j
}

// Discard enqueues key for deletion without blocking. When the queue is
// full the key is dropped and logged; the orphaned object stays behind.
func (j *Janitor) Discard(key string) {
	if key == "" {
		return
	}
	select {
	case j.keys <- key:
	default:
		slog.Warn("cleanup queue full, leaving orphaned upload", "key", key)
	}
}

// Close stops the worker after draining queued deletions.
func (j *Janitor) Close() {
	close(j.keys)
	<-j.done
}

func (j *Janitor) run() {
	defer close(j.done)
	for key := range j.keys {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		if err := j.deleter.Delete(ctx, key); err != nil {
			slog.Warn("could not delete orphaned upload", "key", key, "err", err)
		}
		cancel()
	}
}
