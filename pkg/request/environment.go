package request

import "strings"

// Environment is a named variable scope.
type Environment struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Variables []KeyValue `json:"variables" yaml:"variables"`
}

// NewEnvironment returns an environment seeded with one blank variable.
func NewEnvironment(name string) Environment {
	return Environment{
		ID:        NewID("env"),
		Name:      strings.TrimSpace(name),
		Variables: []KeyValue{NewRow("var")},
	}
}

// Clone returns a deep copy.
func (e Environment) Clone() Environment {
	out := e
	out.Variables = cloneRows(e.Variables)
	return out
}

// WorkspaceSnapshot is the persisted state of requests and folders.
type WorkspaceSnapshot struct {
	Requests        []RequestItem `json:"requests"`
	Folders         []Folder      `json:"folders"`
	ActiveRequestID string        `json:"activeRequestId,omitempty"`
}

// EnvironmentSnapshot is the persisted state of variable scopes.
type EnvironmentSnapshot struct {
	Environments        []Environment `json:"environments" yaml:"environments"`
	Globals             []KeyValue    `json:"globals" yaml:"globals"`
	ActiveEnvironmentID string        `json:"activeEnvironmentId,omitempty" yaml:"activeEnvironmentId,omitempty"`
}

// NewEnvironmentSnapshot returns the initial state: no environments and one
// blank global variable.
func NewEnvironmentSnapshot() EnvironmentSnapshot {
	return EnvironmentSnapshot{
		Environments: []Environment{},
		Globals:      []KeyValue{NewRow("var")},
	}
}

// NewWorkspaceSnapshot returns the initial state: no requests or folders.
func NewWorkspaceSnapshot() WorkspaceSnapshot {
	return WorkspaceSnapshot{Requests: []RequestItem{}, Folders: []Folder{}}
}

// ActiveEnvironment returns the active environment if any.
func (s EnvironmentSnapshot) ActiveEnvironment() (Environment, bool) {
	if s.ActiveEnvironmentID == "" {
		return Environment{}, false
	}
	for _, env := range s.Environments {
		if env.ID == s.ActiveEnvironmentID {
			return env, true
		}
	}
	return Environment{}, false
}
