// Package watcher detects external changes to an open workspace by
// polling its file tree and diffing successive snapshots. It is a pure
// consumer of tree listings and performs no writes.
package watcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paperbase/paperbase/pkg/models"
	"github.com/paperbase/paperbase/pkg/tree"
)

// Event types.
const (
	EventCreate = "create"
	EventModify = "modify"
	EventDelete = "delete"
)

// Event represents one observed workspace change.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Time int64  `json:"time"`
}

// TreeSource yields fresh tree snapshots; the workspace service
// satisfies it.
type TreeSource interface {
	GetFileTree(ctx context.Context) ([]*models.FileNode, error)
}

type entryState struct {
	isDir bool
	size  int64
	mtime int64
}

// Watcher polls a TreeSource for changes on an interval and fans events
// out to subscribers. Slow subscribers drop events rather than stalling
// the poll loop.
type Watcher struct {
	source   TreeSource
	interval time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	state map[string]entryState
	subs  map[chan Event]struct{}
	done  chan struct{}
}

// New creates a workspace watcher.
func New(source TreeSource, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval == 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		source:   source,
		interval: interval,
		logger:   logger,
		state:    make(map[string]entryState),
		subs:     make(map[chan Event]struct{}),
		done:     make(chan struct{}),
	}
}

// Start snapshots the current tree and begins polling.
func (w *Watcher) Start(ctx context.Context) error {
	snapshot, err := w.snapshot(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.state = snapshot
	w.mu.Unlock()

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

// Subscribe returns a channel that receives events.
func (w *Watcher) Subscribe() chan Event {
	ch := make(chan Event, 100)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (w *Watcher) Unsubscribe(ch chan Event) {
	w.mu.Lock()
	delete(w.subs, ch)
	close(ch)
	w.mu.Unlock()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkChanges(ctx)
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) snapshot(ctx context.Context) (map[string]entryState, error) {
	nodes, err := w.source.GetFileTree(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]entryState)
	for path, node := range tree.Flatten(nodes) {
		snapshot[path] = entryState{
			isDir: node.IsDir(),
			size:  node.Size,
			mtime: node.ModTime.UnixNano(),
		}
	}
	return snapshot, nil
}

func (w *Watcher) checkChanges(ctx context.Context) {
	newState, err := w.snapshot(ctx)
	if err != nil {
		// A failed poll is skipped; the next tick retries.
		w.logger.Warn("tree snapshot failed", zap.Error(err))
		return
	}

	now := time.Now().Unix()
	var events []Event

	w.mu.RLock()
	for path, entry := range newState {
		old, exists := w.state[path]
		switch {
		case !exists:
			events = append(events, Event{Type: EventCreate, Path: path, Time: now})
		case old != entry:
			events = append(events, Event{Type: EventModify, Path: path, Time: now})
		}
	}
	for path := range w.state {
		if _, exists := newState[path]; !exists {
			events = append(events, Event{Type: EventDelete, Path: path, Time: now})
		}
	}
	w.mu.RUnlock()

	w.mu.Lock()
	w.state = newState
	w.mu.Unlock()

	if len(events) > 0 {
		w.broadcast(events)
	}
}

func (w *Watcher) broadcast(events []Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for ch := range w.subs {
		for _, event := range events {
			select {
			case ch <- event:
			default:
				w.logger.Warn("dropping event for slow subscriber",
					zap.String("type", event.Type), zap.String("path", event.Path))
			}
		}
	}
}
