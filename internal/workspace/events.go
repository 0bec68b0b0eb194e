package workspace

// EventKind classifies a committed change.
type EventKind string

const (
	EventRequestCreated EventKind = "request.created"
	EventRequestUpdated EventKind = "request.updated"
	EventRequestDeleted EventKind = "request.deleted"
	EventActiveChanged  EventKind = "request.active"
	EventFoldersChanged EventKind = "folders.changed"
	EventHistoryChanged EventKind = "history.changed"
	EventLoadingChanged EventKind = "loading.changed"
	EventReplaced       EventKind = "workspace.replaced"
)

// Persistent reports whether the change alters persisted state.
func (k EventKind) Persistent() bool {
	return k != EventLoadingChanged
}

// Event describes one committed change.
type Event struct {
	Kind       EventKind `json:"kind"`
	RequestID  string    `json:"requestId,omitempty"`
	FolderID   string    `json:"folderId,omitempty"`
	ResponseID string    `json:"responseId,omitempty"`
	Loading    bool      `json:"loading,omitempty"`
}

// Listener is called after a change is committed, outside the store lock,
// in subscription order.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}
