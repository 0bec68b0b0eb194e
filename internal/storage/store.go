// Package storage persists the workspace and environment snapshots.
package storage

import (
	"errors"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"
)

// ErrUnsupportedDriver indicates the configured driver is not available.
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// Store defines the persistence contract for application state. Load
// methods return nil without error when nothing has been saved yet.
type Store interface {
	LoadWorkspace() (*request.WorkspaceSnapshot, error)
	SaveWorkspace(request.WorkspaceSnapshot) error
	LoadEnvironments() (*request.EnvironmentSnapshot, error)
	SaveEnvironments(request.EnvironmentSnapshot) error

	Close() error
}

// New instantiates a Store based on configuration.
func New(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage config is nil")
	}
	switch driver := cfg.Driver; driver {
	case "", "sqlite", "sqlite3":
		return newSQLiteStore(cfg, log)
	case "json":
		return newJSONStore(cfg, log)
	default:
		return nil, ErrUnsupportedDriver
	}
}
