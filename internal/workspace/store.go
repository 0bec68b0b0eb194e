// Package workspace holds the request definitions, folders, the active
// request pointer and every request's response history. All mutation goes
// through Store methods, which apply changes atomically under one mutex and
// then notify listeners.
package workspace

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/funnyzak/reqkit/internal/derive"
	"github.com/funnyzak/reqkit/pkg/request"
)

var (
	ErrRequestNotFound  = errors.New("request not found")
	ErrFolderNotFound   = errors.New("folder not found")
	ErrResponseNotFound = errors.New("response not found")
)

// Store is the single source of truth for requests and folders.
type Store struct {
	mu         sync.Mutex
	requests   []request.RequestItem
	folders    []request.Folder
	activeID   string
	inFlight   int
	maxHistory int
	now        func() time.Time

	listeners    []listenerEntry
	nextListener int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxHistory caps each request's history; 0 keeps everything.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// New restores a store from snapshot, or starts empty when nil.
func New(snapshot *request.WorkspaceSnapshot, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if snapshot != nil {
		s.load(*snapshot)
	}
	return s
}

func (s *Store) load(snap request.WorkspaceSnapshot) {
	s.requests = make([]request.RequestItem, 0, len(snap.Requests))
	for _, it := range snap.Requests {
		it = it.Clone()
		it.Request = normalizeRequest(it.Request)
		if it.Responses == nil {
			it.Responses = []request.ResponseHistoryItem{}
		}
		s.requests = append(s.requests, it)
	}
	s.folders = make([]request.Folder, 0, len(snap.Folders))
	for _, f := range snap.Folders {
		f = f.Clone()
		kept := f.Requests[:0]
		for _, id := range f.Requests {
			if s.indexOf(id) >= 0 && !s.inAnyFolder(id) && !contains(kept, id) {
				kept = append(kept, id)
			}
		}
		f.Requests = kept
		s.folders = append(s.folders, f)
	}
	s.activeID = ""
	if s.indexOf(snap.ActiveRequestID) >= 0 {
		s.activeID = snap.ActiveRequestID
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// commit must be called with s.mu held. It releases the lock and then
// notifies listeners.
func (s *Store) commit(ev Event) {
	listeners := append([]listenerEntry(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l.fn(ev)
	}
}

// Snapshot returns a deep copy of the persisted state.
func (s *Store) Snapshot() request.WorkspaceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := request.WorkspaceSnapshot{
		Requests:        make([]request.RequestItem, len(s.requests)),
		Folders:         make([]request.Folder, len(s.folders)),
		ActiveRequestID: s.activeID,
	}
	for i, it := range s.requests {
		snap.Requests[i] = it.Clone()
	}
	for i, f := range s.folders {
		snap.Folders[i] = f.Clone()
	}
	return snap
}

// Replace swaps in a whole workspace, as on import.
func (s *Store) Replace(snap request.WorkspaceSnapshot) {
	s.mu.Lock()
	s.load(snap)
	s.commit(Event{Kind: EventReplaced})
}

// Requests returns copies of every request in order.
func (s *Store) Requests() []request.RequestItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]request.RequestItem, len(s.requests))
	for i, it := range s.requests {
		out[i] = it.Clone()
	}
	return out
}

// Request returns a copy of the request with id.
func (s *Store) Request(id string) (request.RequestItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return request.RequestItem{}, false
	}
	return s.requests[idx].Clone(), true
}

// Find looks a request up by id, then by case-insensitive name.
func (s *Store) Find(nameOrID string) (request.RequestItem, bool) {
	if it, ok := s.Request(nameOrID); ok {
		return it, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(nameOrID)
	for _, it := range s.requests {
		if strings.EqualFold(it.Name, name) {
			return it.Clone(), true
		}
	}
	return request.RequestItem{}, false
}

// ActiveRequestID returns the active pointer, "" when none.
func (s *Store) ActiveRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveRequest returns a copy of the active request.
func (s *Store) ActiveRequest() (request.RequestItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(s.activeID)
	if idx < 0 {
		return request.RequestItem{}, false
	}
	return s.requests[idx].Clone(), true
}

// CreateRequest appends a new request and makes it active.
func (s *Store) CreateRequest(name string) request.RequestItem {
	s.mu.Lock()
	it := request.NewRequestItem(s.now())
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		it.Name = trimmed
	}
	s.requests = append(s.requests, it)
	s.activeID = it.ID
	out := it.Clone()
	s.commit(Event{Kind: EventRequestCreated, RequestID: it.ID})
	return out
}

// DuplicateRequest copies the definition of id without its history. The
// copy becomes active and joins the same folder.
func (s *Store) DuplicateRequest(id string) (request.RequestItem, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return request.RequestItem{}, false
	}
	src := s.requests[idx]
	it := request.NewRequestItem(s.now())
	it.Name = src.Name + " Copy"
	it.Request = src.Request.Clone()
	for i := range it.Request.Headers {
		it.Request.Headers[i].ID = request.NewID("header")
	}
	for i := range it.Request.Params {
		it.Request.Params[i].ID = request.NewID("param")
	}
	s.requests = append(s.requests, it)
	for i := range s.folders {
		if s.folders[i].Contains(id) {
			s.folders[i].Requests = append(s.folders[i].Requests, it.ID)
		}
	}
	s.activeID = it.ID
	out := it.Clone()
	s.commit(Event{Kind: EventRequestCreated, RequestID: it.ID})
	return out, true
}

// RenameRequest sets the display name. Blank names are rejected.
func (s *Store) RenameRequest(id, name string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrRequestNotFound
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		s.mu.Unlock()
		return &request.ValidationError{Field: "name", Code: request.CodeNameRequired, Message: "request name is required"}
	}
	s.requests[idx].Name = trimmed
	s.requests[idx].UpdatedAt = s.now().UnixMilli()
	s.commit(Event{Kind: EventRequestUpdated, RequestID: id})
	return nil
}

// DeleteRequest removes id and every folder reference to it. When it was
// active, the last remaining request becomes active, or none.
func (s *Store) DeleteRequest(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.requests = append(s.requests[:idx], s.requests[idx+1:]...)
	for i := range s.folders {
		s.folders[i].Requests = without(s.folders[i].Requests, id)
	}
	if s.activeID == id {
		s.activeID = ""
		if n := len(s.requests); n > 0 {
			s.activeID = s.requests[n-1].ID
		}
	}
	s.commit(Event{Kind: EventRequestDeleted, RequestID: id})
	return true
}

// SetActiveRequest moves the active pointer; "" clears it.
func (s *Store) SetActiveRequest(id string) bool {
	s.mu.Lock()
	if id != "" && s.indexOf(id) < 0 {
		s.mu.Unlock()
		return false
	}
	s.activeID = id
	s.commit(Event{Kind: EventActiveChanged, RequestID: id})
	return true
}

// ReplaceRequest overwrites the definition of id wholesale.
func (s *Store) ReplaceRequest(id string, req request.HTTPRequest) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.requests[idx].Request = normalizeRequest(req.Clone())
	s.requests[idx].UpdatedAt = s.now().UnixMilli()
	s.commit(Event{Kind: EventRequestUpdated, RequestID: id})
	return true
}

// mutateActive applies fn to a copy of the active request and commits the
// result with a bumped UpdatedAt. It is a no-op when nothing is active or
// fn reports no change.
func (s *Store) mutateActive(fn func(*request.HTTPRequest) bool) (request.RequestItem, bool) {
	s.mu.Lock()
	return s.mutateAt(s.indexOf(s.activeID), fn)
}

// mutateAt applies fn to a copy of the definition at idx and commits it
// when fn reports a change. It must be called with s.mu held and releases
// it.
func (s *Store) mutateAt(idx int, fn func(*request.HTTPRequest) bool) (request.RequestItem, bool) {
	if idx < 0 {
		s.mu.Unlock()
		return request.RequestItem{}, false
	}
	req := s.requests[idx].Request.Clone()
	if !fn(&req) {
		s.mu.Unlock()
		return request.RequestItem{}, false
	}
	s.requests[idx].Request = req
	s.requests[idx].UpdatedAt = s.now().UnixMilli()
	out := s.requests[idx].Clone()
	s.commit(Event{Kind: EventRequestUpdated, RequestID: out.ID})
	return out, true
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, it := range s.requests {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func normalizeRequest(req request.HTTPRequest) request.HTTPRequest {
	if strings.TrimSpace(req.Method) == "" {
		req.Method = request.DefaultMethod
	}
	if req.BodyType == "" {
		req.BodyType = request.BodyNone
	}
	if req.TextSubtype == "" {
		req.TextSubtype = request.TextRaw
	}
	if req.FormSubtype == "" {
		req.FormSubtype = request.FormURLEncoded
	}
	if req.Timeout <= 0 {
		req.Timeout = request.DefaultTimeoutMs
	}
	if req.Auth.Type == "" {
		req.Auth.Type = request.AuthInherit
	}
	req.Headers = derive.NormalizeRows(req.Headers, "header")
	req.Params = derive.NormalizeRows(req.Params, "param")
	return req
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
