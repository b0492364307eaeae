package docrelay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Staging is the on-disk delivery queue: every file under the directory
// is a downloaded document that has not yet been confirmed delivered.
// The fetch stage writes, the forward stage reads and deletes, and a
// directory scan after restart picks up whatever a crashed run left
// behind.
type Staging struct {
	dir           string
	deadLetterDir string
}

func NewStaging(dir, deadLetterDir string) (*Staging, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, ErrInvalidInput
	}
	deadLetterDir = strings.TrimSpace(deadLetterDir)
	if deadLetterDir == "" {
		deadLetterDir = filepath.Join(dir, "deadletter")
	}
	return &Staging{dir: dir, deadLetterDir: deadLetterDir}, nil
}

func (s *Staging) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Store writes content under name via a temp file and rename, so a crash
// mid-write never leaves a truncated document in the queue.
func (s *Staging) Store(name string, content []byte) error {
	if s == nil || strings.TrimSpace(name) == "" {
		return ErrInvalidInput
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, name), content, 0o644)
}

// List returns the staged file names sorted ascending. A missing staging
// directory is an empty queue, not an error.
func (s *Staging) List() ([]string, error) {
	if s == nil {
		return nil, ErrInvalidState
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Staging) Read(name string) ([]byte, error) {
	if s == nil || strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

func (s *Staging) Remove(name string) error {
	if s == nil || strings.TrimSpace(name) == "" {
		return ErrInvalidInput
	}
	return os.Remove(filepath.Join(s.dir, name))
}

// DeadLetter moves a staged file out of the retry queue into the
// dead-letter directory.
func (s *Staging) DeadLetter(name string) error {
	if s == nil || strings.TrimSpace(name) == "" {
		return ErrInvalidInput
	}
	if err := os.MkdirAll(s.deadLetterDir, 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(s.dir, name), filepath.Join(s.deadLetterDir, name))
}

// StagedName derives the staging file name for a document id.
func StagedName(id int64) string {
	return fmt.Sprintf("%d.pdf", id)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
