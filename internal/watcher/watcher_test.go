package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paperbase/paperbase/pkg/models"
)

// fakeSource serves a swappable tree snapshot.
type fakeSource struct {
	mu    sync.Mutex
	nodes []*models.FileNode
	err   error
}

func (f *fakeSource) GetFileTree(context.Context) ([]*models.FileNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes, f.err
}

func (f *fakeSource) set(nodes []*models.FileNode) {
	f.mu.Lock()
	f.nodes = nodes
	f.mu.Unlock()
}

func fileNode(path string, size int64, mtime time.Time) *models.FileNode {
	return &models.FileNode{Path: path, Name: path, Type: models.NodeFile, Size: size, ModTime: mtime}
}

func drain(ch chan Event) map[string]string {
	got := map[string]string{}
	for {
		select {
		case e := <-ch:
			got[e.Path] = e.Type
		default:
			return got
		}
	}
}

func TestStartFailsWhenSnapshotFails(t *testing.T) {
	src := &fakeSource{err: errors.New("not initialized")}
	w := New(src, time.Hour, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start should surface the snapshot error")
	}
}

func TestDiffEvents(t *testing.T) {
	base := time.Now()
	src := &fakeSource{nodes: []*models.FileNode{
		fileNode("/keep.txt", 1, base),
		fileNode("/change.txt", 5, base),
		fileNode("/remove.txt", 2, base),
	}}

	// A long interval keeps the poll loop quiet; ticks are driven by
	// hand through checkChanges.
	w := New(src, time.Hour, nil)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	ch := w.Subscribe()
	defer w.Unsubscribe(ch)

	src.set([]*models.FileNode{
		fileNode("/keep.txt", 1, base),
		fileNode("/change.txt", 9, base.Add(time.Second)),
		fileNode("/new.txt", 3, base),
	})
	w.checkChanges(ctx)

	got := drain(ch)
	want := map[string]string{
		"/change.txt": EventModify,
		"/new.txt":    EventCreate,
		"/remove.txt": EventDelete,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for path, typ := range want {
		if got[path] != typ {
			t.Errorf("event[%q] = %q, want %q", path, got[path], typ)
		}
	}

	// No changes, no events.
	w.checkChanges(ctx)
	if got := drain(ch); len(got) != 0 {
		t.Errorf("unexpected events: %v", got)
	}
}

func TestFailedPollSkipsTick(t *testing.T) {
	base := time.Now()
	src := &fakeSource{nodes: []*models.FileNode{fileNode("/a.txt", 1, base)}}
	w := New(src, time.Hour, nil)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	ch := w.Subscribe()
	defer w.Unsubscribe(ch)

	src.mu.Lock()
	src.err = errors.New("transient")
	src.mu.Unlock()
	w.checkChanges(ctx)
	if got := drain(ch); len(got) != 0 {
		t.Errorf("failed poll emitted events: %v", got)
	}

	// Recovery diffs against the last good snapshot, not the failed one.
	src.mu.Lock()
	src.err = nil
	src.nodes = []*models.FileNode{fileNode("/a.txt", 1, base), fileNode("/b.txt", 1, base)}
	src.mu.Unlock()
	w.checkChanges(ctx)

	got := drain(ch)
	if got["/b.txt"] != EventCreate || len(got) != 1 {
		t.Errorf("events after recovery = %v", got)
	}
}

func TestFolderEventsCarryNestedPaths(t *testing.T) {
	base := time.Now()
	folder := &models.FileNode{Path: "/docs", Name: "docs", Type: models.NodeFolder,
		Children: []*models.FileNode{fileNode("/docs/inner.md", 4, base)}}
	src := &fakeSource{nodes: []*models.FileNode{folder}}

	w := New(src, time.Hour, nil)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	ch := w.Subscribe()
	defer w.Unsubscribe(ch)

	src.set(nil)
	w.checkChanges(ctx)

	got := drain(ch)
	if got["/docs"] != EventDelete || got["/docs/inner.md"] != EventDelete {
		t.Errorf("events = %v", got)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	base := time.Now()
	src := &fakeSource{nodes: nil}
	w := New(src, time.Hour, nil)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	ch := w.Subscribe()
	defer w.Unsubscribe(ch)

	// Never read from ch; more creates than the channel buffers must
	// not stall the diff.
	var nodes []*models.FileNode
	for i := 0; i < 150; i++ {
		nodes = append(nodes, fileNode(fmt.Sprintf("/f%03d.txt", i), int64(i), base))
	}
	src.set(nodes)

	done := make(chan struct{})
	go func() {
		w.checkChanges(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	src := &fakeSource{}
	w := New(src, time.Hour, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	ch := w.Subscribe()
	w.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}
