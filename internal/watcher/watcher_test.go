package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string, extensions []string) *atomic.Int32 {
	t.Helper()
	var fires atomic.Int32
	w := NewWatcher(root, extensions, func() { fires.Add(1) },
		WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return &fires
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) bool {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_FiresOnceForBurst(t *testing.T) {
	dir := t.TempDir()
	fires := startWatcher(t, dir, []string{".md"})

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "doc.md")
		if err := os.WriteFile(name, []byte("# Doc\nrevision"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(t, 3*time.Second, func() bool { return fires.Load() >= 1 }) {
		t.Fatal("onChange never fired")
	}
	// Let any stray timers run out, then confirm the burst collapsed.
	time.Sleep(300 * time.Millisecond)
	if n := fires.Load(); n != 1 {
		t.Errorf("onChange fired %d times for one burst", n)
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	fires := startWatcher(t, dir, []string{".md"})

	if err := os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)
	if n := fires.Load(); n != 0 {
		t.Errorf("onChange fired %d times for an ignored extension", n)
	}
}

func TestWatcher_SeesNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	fires := startWatcher(t, dir, []string{".md"})

	sub := filepath.Join(dir, "guides")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return fires.Load() >= 1 }) {
		t.Fatal("directory creation did not trigger a rebuild")
	}

	before := fires.Load()
	if err := os.WriteFile(filepath.Join(sub, "new.md"), []byte("# New"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return fires.Load() > before }) {
		t.Error("file in new subdirectory did not trigger a rebuild")
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent"), nil, func() {})
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing root")
		w.Stop()
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	var fires atomic.Int32
	w := NewWatcher(dir, []string{".md"}, func() { fires.Add(1) },
		WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("# D"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if n := fires.Load(); n != 0 {
		t.Errorf("onChange fired %d times after Stop", n)
	}
}
