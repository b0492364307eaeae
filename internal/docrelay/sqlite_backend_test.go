package docrelay

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStateBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	backend, err := NewSQLiteStateBackend(path)
	if err != nil {
		t.Fatalf("new sqlite state backend failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.(*SQLiteStateBackend).Close() })

	snapshot, err := backend.Load()
	if err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	if snapshot != nil {
		t.Fatalf("expected nil initial snapshot, got %+v", snapshot)
	}

	saved := &relayState{Watermark: 104, DeliveryAttempts: map[string]int{"104.pdf": 1}}
	if err := backend.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	saved.Watermark = 105
	if err := backend.Save(saved); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := backend.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil || loaded.Watermark != 105 || loaded.DeliveryAttempts["104.pdf"] != 1 {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
}

func TestSQLiteStateBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	backend, err := NewSQLiteStateBackend(path)
	if err != nil {
		t.Fatalf("new sqlite state backend failed: %v", err)
	}
	if err := backend.Save(&relayState{Watermark: 9}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := backend.(*SQLiteStateBackend).Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewSQLiteStateBackend(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = reopened.(*SQLiteStateBackend).Close() })
	loaded, err := reopened.Load()
	if err != nil {
		t.Fatalf("load after reopen failed: %v", err)
	}
	if loaded == nil || loaded.Watermark != 9 {
		t.Fatalf("expected watermark 9 after reopen, got %+v", loaded)
	}
}

func TestSQLiteStateBackendRejectsEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStateBackend("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
