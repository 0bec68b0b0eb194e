package storage

import (
	"sync"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

// Restore loads both snapshots. Missing snapshots come back as nil so the
// state containers start from their defaults.
func Restore(s Store) (*request.WorkspaceSnapshot, *request.EnvironmentSnapshot, error) {
	ws, err := s.LoadWorkspace()
	if err != nil {
		return nil, nil, err
	}
	envs, err := s.LoadEnvironments()
	if err != nil {
		return nil, nil, err
	}
	return ws, envs, nil
}

// Bind saves the workspace and the environments after every persistent
// change. The returned function detaches both listeners.
func Bind(s Store, ws *workspace.Store, envs *vars.Environments, log logger.Logger) func() {
	var wsMu, envMu sync.Mutex

	stopWS := ws.Subscribe(func(ev workspace.Event) {
		if !ev.Kind.Persistent() {
			return
		}
		// The snapshot is taken under wsMu so a slower save never
		// overwrites a newer one.
		wsMu.Lock()
		defer wsMu.Unlock()
		if err := s.SaveWorkspace(ws.Snapshot()); err != nil {
			log.Error("Failed to save workspace", "event", string(ev.Kind), "error", err)
		}
	})

	stopEnv := envs.Subscribe(func(request.EnvironmentSnapshot) {
		envMu.Lock()
		defer envMu.Unlock()
		if err := s.SaveEnvironments(envs.Snapshot()); err != nil {
			log.Error("Failed to save environments", "error", err)
		}
	})

	return func() {
		stopWS()
		stopEnv()
	}
}
