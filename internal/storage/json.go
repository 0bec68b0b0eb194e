package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"
)

const (
	workspaceFile    = "workspace.json"
	environmentsFile = "environments.json"
)

// jsonStore keeps each snapshot in its own file under a directory.
type jsonStore struct {
	mu  sync.Mutex
	dir string
	log logger.Logger
}

func newJSONStore(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("json storage path cannot be empty")
	}
	dir, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve json storage path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare json storage directory: %w", err)
	}
	log.Debug("JSON storage opened", "dir", dir)
	return &jsonStore{dir: dir, log: log}, nil
}

func (s *jsonStore) LoadWorkspace() (*request.WorkspaceSnapshot, error) {
	var snap request.WorkspaceSnapshot
	found, err := s.read(workspaceFile, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (s *jsonStore) SaveWorkspace(snap request.WorkspaceSnapshot) error {
	return s.write(workspaceFile, snap)
}

func (s *jsonStore) LoadEnvironments() (*request.EnvironmentSnapshot, error) {
	var snap request.EnvironmentSnapshot
	found, err := s.read(environmentsFile, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (s *jsonStore) SaveEnvironments(snap request.EnvironmentSnapshot) error {
	return s.write(environmentsFile, snap)
}

func (s *jsonStore) Close() error { return nil }

func (s *jsonStore) read(name string, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// write replaces name atomically through a temp file in the same directory.
func (s *jsonStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
