package workspace

import (
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

// Folders returns copies of every folder in order.
func (s *Store) Folders() []request.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]request.Folder, len(s.folders))
	for i, f := range s.folders {
		out[i] = f.Clone()
	}
	return out
}

// Folder returns the folder with id or case-insensitive name.
func (s *Store) Folder(nameOrID string) (request.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.folderIndex(nameOrID); idx >= 0 {
		return s.folders[idx].Clone(), true
	}
	name := strings.TrimSpace(nameOrID)
	for _, f := range s.folders {
		if strings.EqualFold(f.Name, name) {
			return f.Clone(), true
		}
	}
	return request.Folder{}, false
}

// CreateFolder adds an empty folder. Blank and duplicate names are
// rejected with a *request.ValidationError.
func (s *Store) CreateFolder(name string) (request.Folder, error) {
	s.mu.Lock()
	if verr := request.ValidateName("folder", name, s.folderNames("")); verr != nil {
		s.mu.Unlock()
		return request.Folder{}, verr
	}
	f := request.NewFolder(name)
	s.folders = append(s.folders, f)
	out := f.Clone()
	s.commit(Event{Kind: EventFoldersChanged, FolderID: f.ID})
	return out, nil
}

// RenameFolder renames id. Keeping the same name is a no-op.
func (s *Store) RenameFolder(id, name string) error {
	s.mu.Lock()
	idx := s.folderIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrFolderNotFound
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == s.folders[idx].Name {
		s.mu.Unlock()
		return nil
	}
	if verr := request.ValidateName("folder", trimmed, s.folderNames(id)); verr != nil {
		s.mu.Unlock()
		return verr
	}
	s.folders[idx].Name = trimmed
	s.commit(Event{Kind: EventFoldersChanged, FolderID: id})
	return nil
}

// DeleteFolder removes the folder. Its requests stay in the workspace.
func (s *Store) DeleteFolder(id string) bool {
	s.mu.Lock()
	idx := s.folderIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.folders = append(s.folders[:idx], s.folders[idx+1:]...)
	s.commit(Event{Kind: EventFoldersChanged, FolderID: id})
	return true
}

// ToggleFolder flips the expanded flag.
func (s *Store) ToggleFolder(id string) bool {
	s.mu.Lock()
	idx := s.folderIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.folders[idx].Expanded = !s.folders[idx].Expanded
	s.commit(Event{Kind: EventFoldersChanged, FolderID: id})
	return true
}

// AddRequestToFolder moves requestID into folderID, removing it from any
// other folder. Adding it to its current folder is idempotent.
func (s *Store) AddRequestToFolder(requestID, folderID string) error {
	s.mu.Lock()
	if s.indexOf(requestID) < 0 {
		s.mu.Unlock()
		return ErrRequestNotFound
	}
	target := s.folderIndex(folderID)
	if target < 0 {
		s.mu.Unlock()
		return ErrFolderNotFound
	}
	for i := range s.folders {
		if i != target {
			s.folders[i].Requests = without(s.folders[i].Requests, requestID)
		}
	}
	if !s.folders[target].Contains(requestID) {
		s.folders[target].Requests = append(s.folders[target].Requests, requestID)
	}
	s.commit(Event{Kind: EventFoldersChanged, FolderID: folderID, RequestID: requestID})
	return nil
}

// RemoveRequestFromFolder takes requestID out of folderID.
func (s *Store) RemoveRequestFromFolder(requestID, folderID string) bool {
	s.mu.Lock()
	idx := s.folderIndex(folderID)
	if idx < 0 || !s.folders[idx].Contains(requestID) {
		s.mu.Unlock()
		return false
	}
	s.folders[idx].Requests = without(s.folders[idx].Requests, requestID)
	s.commit(Event{Kind: EventFoldersChanged, FolderID: folderID, RequestID: requestID})
	return true
}

// Unorganized returns ids of requests that belong to no folder.
func (s *Store) Unorganized() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, it := range s.requests {
		if !s.inAnyFolder(it.ID) {
			out = append(out, it.ID)
		}
	}
	return out
}

func (s *Store) folderIndex(id string) int {
	for i, f := range s.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) folderNames(except string) []string {
	names := make([]string, 0, len(s.folders))
	for _, f := range s.folders {
		if f.ID != except {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *Store) inAnyFolder(requestID string) bool {
	for _, f := range s.folders {
		if f.Contains(requestID) {
			return true
		}
	}
	return false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
