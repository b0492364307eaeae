package docrelay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStagingWatcherSignalsOnNewFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workdir")
	watcher, err := NewStagingWatcher(dir)
	if err != nil {
		t.Fatalf("new watcher failed: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })

	if err := os.WriteFile(filepath.Join(dir, "55.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write staged file failed: %v", err)
	}

	select {
	case <-watcher.Wake():
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a wake signal after a file landed in staging")
	}
}

func TestStagingWatcherCoalescesSignals(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workdir")
	watcher, err := NewStagingWatcher(dir)
	if err != nil {
		t.Fatalf("new watcher failed: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, StagedName(int64(i)))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("write staged file failed: %v", err)
		}
	}

	select {
	case <-watcher.Wake():
	case <-time.After(5 * time.Second):
		t.Fatalf("expected at least one wake signal")
	}
	// The channel is buffered with capacity one; draining once must not
	// leave a backlog of five signals.
	drained := 0
	for {
		select {
		case <-watcher.Wake():
			drained++
		case <-time.After(200 * time.Millisecond):
			if drained > 1 {
				t.Fatalf("expected coalesced signals, drained %d extra", drained)
			}
			return
		}
	}
}

func TestNilStagingWatcherWakeNeverFires(t *testing.T) {
	var watcher *StagingWatcher
	select {
	case <-watcher.Wake():
		t.Fatalf("nil watcher wake channel must block forever")
	default:
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("nil watcher close must be a no-op: %v", err)
	}
}

func TestNewStagingWatcherCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "workdir")
	watcher, err := NewStagingWatcher(dir)
	if err != nil {
		t.Fatalf("new watcher failed: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("staging dir not created: %v", err)
	}
}

func TestNewStagingWatcherRejectsEmptyDir(t *testing.T) {
	if _, err := NewStagingWatcher("   "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
