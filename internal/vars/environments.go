package vars

import (
	"errors"
	"strings"
	"sync"

	"github.com/funnyzak/reqkit/internal/derive"
	"github.com/funnyzak/reqkit/pkg/request"
)

// GlobalScope addresses the global variable list in variable operations.
const GlobalScope = ""

var (
	ErrEnvironmentNotFound = errors.New("environment not found")
	ErrVariableNotFound    = errors.New("variable not found")
)

// Environments owns the environment list, the global variables and the
// active environment pointer. Listeners receive a copy of the new state
// after every change, outside the lock.
type Environments struct {
	mu        sync.Mutex
	state     request.EnvironmentSnapshot
	listeners []envListener
	nextID    int
}

type envListener struct {
	id int
	fn func(request.EnvironmentSnapshot)
}

// NewEnvironments restores from snapshot, or starts empty when nil.
func NewEnvironments(snapshot *request.EnvironmentSnapshot) *Environments {
	state := request.NewEnvironmentSnapshot()
	if snapshot != nil {
		state = cloneEnvState(*snapshot)
	}
	state.Globals = derive.NormalizeRows(state.Globals, "var")
	for i := range state.Environments {
		state.Environments[i].Variables = derive.NormalizeRows(state.Environments[i].Variables, "var")
	}
	if _, ok := state.ActiveEnvironment(); !ok {
		state.ActiveEnvironmentID = ""
	}
	return &Environments{state: state}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Environments) Subscribe(fn func(request.EnvironmentSnapshot)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, envListener{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Environments) Snapshot() request.EnvironmentSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEnvState(e.state)
}

// Resolver builds a resolver over globals and the active environment.
func (e *Environments) Resolver(opts ...Option) *Resolver {
	e.mu.Lock()
	defer e.mu.Unlock()
	var envVars []request.KeyValue
	if env, ok := e.state.ActiveEnvironment(); ok {
		envVars = env.Variables
	}
	return NewResolver(e.state.Globals, envVars, opts...)
}

// ResolverFor builds a resolver over globals and the named or identified
// environment, ignoring the active pointer.
func (e *Environments) ResolverFor(nameOrID string, opts ...Option) (*Resolver, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.lookup(nameOrID)
	if idx < 0 {
		return nil, ErrEnvironmentNotFound
	}
	return NewResolver(e.state.Globals, e.state.Environments[idx].Variables, opts...), nil
}

// Find returns the environment with the given id or case-insensitive name.
func (e *Environments) Find(nameOrID string) (request.Environment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.lookup(nameOrID)
	if idx < 0 {
		return request.Environment{}, false
	}
	return e.state.Environments[idx].Clone(), true
}

// CreateEnvironment adds an environment and makes it active. Blank and
// duplicate names are rejected with a *request.ValidationError.
func (e *Environments) CreateEnvironment(name string) (request.Environment, error) {
	e.mu.Lock()
	if verr := request.ValidateName("environment", name, e.namesExcept("")); verr != nil {
		e.mu.Unlock()
		return request.Environment{}, verr
	}
	env := request.NewEnvironment(name)
	e.state.Environments = append(e.state.Environments, env)
	e.state.ActiveEnvironmentID = env.ID
	e.commit()
	return env.Clone(), nil
}

// RenameEnvironment renames id. Keeping the same name is a no-op.
func (e *Environments) RenameEnvironment(id, name string) error {
	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		return ErrEnvironmentNotFound
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == e.state.Environments[idx].Name {
		e.mu.Unlock()
		return nil
	}
	if verr := request.ValidateName("environment", trimmed, e.namesExcept(id)); verr != nil {
		e.mu.Unlock()
		return verr
	}
	e.state.Environments[idx].Name = trimmed
	e.commit()
	return nil
}

// DeleteEnvironment removes id, clearing the active pointer if it pointed
// there.
func (e *Environments) DeleteEnvironment(id string) bool {
	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	e.state.Environments = append(e.state.Environments[:idx], e.state.Environments[idx+1:]...)
	if e.state.ActiveEnvironmentID == id {
		e.state.ActiveEnvironmentID = ""
	}
	e.commit()
	return true
}

// SetActiveEnvironment points at id, or clears the pointer for "".
func (e *Environments) SetActiveEnvironment(id string) bool {
	e.mu.Lock()
	if id != "" && e.indexOf(id) < 0 {
		e.mu.Unlock()
		return false
	}
	e.state.ActiveEnvironmentID = id
	e.commit()
	return true
}

// AddVariable appends a variable to scope (GlobalScope or an environment
// id) and returns it with any key warning.
func (e *Environments) AddVariable(scope, key, value string) (request.KeyValue, *request.ValidationError, error) {
	e.mu.Lock()
	rows, err := e.rows(scope)
	if err != nil {
		e.mu.Unlock()
		return request.KeyValue{}, nil, err
	}
	v := derive.EditRow(request.NewRow("var"), key, value)
	*rows = derive.NormalizeRows(derive.InsertBeforeTrailing(*rows, v), "var")
	e.commit()
	return v, request.CheckKey(key), nil
}

// UpdateVariable edits key and value of one variable. The edit is always
// applied; an invalid key is reported as a warning.
func (e *Environments) UpdateVariable(scope, id, key, value string) (*request.ValidationError, error) {
	e.mu.Lock()
	rows, err := e.rows(scope)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	i := rowIndex(*rows, id)
	if i < 0 {
		e.mu.Unlock()
		return nil, ErrVariableNotFound
	}
	(*rows)[i] = derive.EditRow((*rows)[i], key, value)
	*rows = derive.NormalizeRows(*rows, "var")
	e.commit()
	return request.CheckKey(key), nil
}

// ToggleVariable flips the enabled flag of one variable.
func (e *Environments) ToggleVariable(scope, id string) error {
	e.mu.Lock()
	rows, err := e.rows(scope)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	i := rowIndex(*rows, id)
	if i < 0 {
		e.mu.Unlock()
		return ErrVariableNotFound
	}
	(*rows)[i].Enabled = !(*rows)[i].Enabled
	e.commit()
	return nil
}

// DeleteVariable removes one variable.
func (e *Environments) DeleteVariable(scope, id string) error {
	e.mu.Lock()
	rows, err := e.rows(scope)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	i := rowIndex(*rows, id)
	if i < 0 {
		e.mu.Unlock()
		return ErrVariableNotFound
	}
	*rows = derive.NormalizeRows(append((*rows)[:i], (*rows)[i+1:]...), "var")
	e.commit()
	return nil
}

// SetVariables upserts key/value pairs into scope in the given order,
// enabling each touched variable. It returns the number of pairs written.
func (e *Environments) SetVariables(scope string, pairs [][2]string) (int, error) {
	e.mu.Lock()
	rows, err := e.rows(scope)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	n := upsertRows(rows, pairs)
	e.commit()
	return n, nil
}

// Replace swaps in a whole state, as on import.
func (e *Environments) Replace(snapshot request.EnvironmentSnapshot) {
	fresh := NewEnvironments(&snapshot)
	e.mu.Lock()
	e.state = fresh.state
	e.commit()
}

func upsertRows(rows *[]request.KeyValue, pairs [][2]string) int {
	n := 0
	for _, p := range pairs {
		key := strings.TrimSpace(p[0])
		if key == "" {
			continue
		}
		found := false
		for i := range *rows {
			if strings.TrimSpace((*rows)[i].Key) == key {
				(*rows)[i].Value = p[1]
				(*rows)[i].Enabled = true
				found = true
			}
		}
		if !found {
			v := derive.EditRow(request.NewRow("var"), key, p[1])
			*rows = derive.InsertBeforeTrailing(*rows, v)
		}
		n++
	}
	*rows = derive.NormalizeRows(*rows, "var")
	return n
}

// commit must be called with e.mu held; it releases the lock before
// notifying listeners.
func (e *Environments) commit() {
	snap := cloneEnvState(e.state)
	listeners := append([]envListener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l.fn(cloneEnvState(snap))
	}
}

func (e *Environments) rows(scope string) (*[]request.KeyValue, error) {
	if scope == GlobalScope {
		return &e.state.Globals, nil
	}
	idx := e.indexOf(scope)
	if idx < 0 {
		return nil, ErrEnvironmentNotFound
	}
	return &e.state.Environments[idx].Variables, nil
}

func (e *Environments) indexOf(id string) int {
	for i, env := range e.state.Environments {
		if env.ID == id {
			return i
		}
	}
	return -1
}

func (e *Environments) lookup(nameOrID string) int {
	if idx := e.indexOf(nameOrID); idx >= 0 {
		return idx
	}
	trimmed := strings.TrimSpace(nameOrID)
	for i, env := range e.state.Environments {
		if strings.EqualFold(env.Name, trimmed) {
			return i
		}
	}
	return -1
}

func (e *Environments) namesExcept(id string) []string {
	names := make([]string, 0, len(e.state.Environments))
	for _, env := range e.state.Environments {
		if env.ID != id {
			names = append(names, env.Name)
		}
	}
	return names
}

func rowIndex(rows []request.KeyValue, id string) int {
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneEnvState(s request.EnvironmentSnapshot) request.EnvironmentSnapshot {
	out := request.EnvironmentSnapshot{
		Environments:        make([]request.Environment, len(s.Environments)),
		Globals:             request.CloneRows(s.Globals),
		ActiveEnvironmentID: s.ActiveEnvironmentID,
	}
	for i, env := range s.Environments {
		out.Environments[i] = env.Clone()
	}
	return out
}
