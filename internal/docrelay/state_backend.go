package docrelay

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// relayState is the snapshot persisted between cycles: the fetch
// watermark plus per-file delivery attempt counts for the forward stage.
type relayState struct {
	Watermark        int64          `json:"watermark"`
	DeliveryAttempts map[string]int `json:"deliveryAttempts,omitempty"`
}

func newRelayState() *relayState {
	return &relayState{DeliveryAttempts: map[string]int{}}
}

func (s *relayState) normalize() *relayState {
	if s == nil {
		return newRelayState()
	}
	if s.DeliveryAttempts == nil {
		s.DeliveryAttempts = map[string]int{}
	}
	return s
}

// StateBackend persists relay state across restarts. Load returns
// (nil, nil) when no snapshot exists yet.
type StateBackend interface {
	Load() (*relayState, error)
	Save(state *relayState) error
}

type InMemoryStateBackend struct {
	mu       sync.Mutex
	snapshot *relayState
}

func NewInMemoryStateBackend() *InMemoryStateBackend {
	return &InMemoryStateBackend{}
}

func (b *InMemoryStateBackend) Load() (*relayState, error) {
	if b == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot == nil {
		return nil, nil
	}
	return cloneRelayState(b.snapshot)
}

func (b *InMemoryStateBackend) Save(state *relayState) error {
	if b == nil || state == nil {
		return nil
	}
	clone, err := cloneRelayState(state)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = clone
	return nil
}

func cloneRelayState(state *relayState) (*relayState, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var clone relayState
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

type JSONFileStateBackend struct {
	Path string
}

func NewJSONFileStateBackend(path string) *JSONFileStateBackend {
	return &JSONFileStateBackend{Path: strings.TrimSpace(path)}
}

func (b *JSONFileStateBackend) Load() (*relayState, error) {
	if b == nil || strings.TrimSpace(b.Path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var snapshot relayState
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (b *JSONFileStateBackend) Save(state *relayState) error {
	if b == nil || strings.TrimSpace(b.Path) == "" || state == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := b.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.Path)
}
