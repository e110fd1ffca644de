package sourcefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/phanxgames/zoml"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitForEvent(t *testing.T, w *Watcher, want zoml.Location, kind zoml.FileEventKind) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ev, err := w.TryNext()
		if err == nil {
			if ev.Location == want && ev.Kind == kind {
				return
			}
			continue
		}
		if !errors.Is(err, zoml.ErrNoFileChanges) {
			t.Fatalf("TryNext: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %v event for %s", kind, want)
}

func newTestWatcher(t *testing.T) (*Dir, *Watcher) {
	t.Helper()
	d, err := NewDir(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(d, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return d, w
}

func TestWatcherReportsCreate(t *testing.T) {
	d, w := newTestWatcher(t)
	defer w.Stop()

	writeFile(t, d.Path("main.zod"), "<root/>")
	waitForEvent(t, w, "main.zod", zoml.FileCreated)
	if s := w.Stats(); s.FilesCreated == 0 {
		t.Errorf("FilesCreated = 0, want > 0")
	}
}

func TestWatcherReportsDelete(t *testing.T) {
	d, w := newTestWatcher(t)
	defer w.Stop()

	writeFile(t, d.Path("gone.zod"), "<control/>")
	waitForEvent(t, w, "gone.zod", zoml.FileCreated)
	if err := os.Remove(d.Path("gone.zod")); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w, "gone.zod", zoml.FileDeleted)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	d, w := newTestWatcher(t)
	defer w.Stop()

	writeFile(t, filepath.Join(d.Root(), "notes.txt"), "x")
	time.Sleep(100 * time.Millisecond)
	if _, err := w.TryNext(); !errors.Is(err, zoml.ErrNoFileChanges) {
		t.Errorf("TryNext = %v, want ErrNoFileChanges", err)
	}
}

func TestWatcherStop(t *testing.T) {
	_, w := newTestWatcher(t)
	w.Stop()
	w.Stop()
	if _, err := w.TryNext(); !errors.Is(err, zoml.ErrNoLongerMonitoring) {
		t.Errorf("TryNext after Stop = %v, want ErrNoLongerMonitoring", err)
	}
}

func TestWatcherContextCancel(t *testing.T) {
	d, err := NewDir(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(d, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	w.Stop()
	if _, err := w.TryNext(); !errors.Is(err, zoml.ErrNoLongerMonitoring) {
		t.Errorf("TryNext = %v, want ErrNoLongerMonitoring", err)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		prev, next, want zoml.FileEventKind
	}{
		{zoml.FileDeleted, zoml.FileCreated, zoml.FileModified},
		{zoml.FileCreated, zoml.FileModified, zoml.FileCreated},
		{zoml.FileModified, zoml.FileDeleted, zoml.FileDeleted},
		{zoml.FileModified, zoml.FileModified, zoml.FileModified},
	}
	for _, tt := range tests {
		if got := coalesce(tt.prev, tt.next); got != tt.want {
			t.Errorf("coalesce(%v, %v) = %v, want %v", tt.prev, tt.next, got, tt.want)
		}
	}
}
