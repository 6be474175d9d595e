// Package session persists the builder's active roster id between
// runs. It is an explicit collaborator injected into the shell, not
// ambient state inside the engine.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Repository stores which roster the builder last had open.
type Repository interface {
	ActiveRoster() (string, bool, error)
	SetActiveRoster(id string) error
	Clear() error
}

type fileState struct {
	RosterID string `json:"roster_id"`
}

// FileRepository keeps the session in a small JSON file.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (f *FileRepository) ActiveRoster() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session: %w", err)
	}
	var st fileState
	if err := json.Unmarshal(b, &st); err != nil {
		// corrupt session file is treated as no session
		return "", false, nil
	}
	if st.RosterID == "" {
		return "", false, nil
	}
	return st.RosterID, true, nil
}

func (f *FileRepository) SetActiveRoster(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	b, err := json.Marshal(fileState{RosterID: id})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileRepository) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryRepository is the in-memory variant used by tests.
type MemoryRepository struct {
	mu sync.Mutex
	id string
	ok bool
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (m *MemoryRepository) ActiveRoster() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.ok, nil
}

func (m *MemoryRepository) SetActiveRoster(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = id, true
	return nil
}

func (m *MemoryRepository) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = "", false
	return nil
}
