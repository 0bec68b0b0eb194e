package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/internal/workspace"
)

const defaultRunConcurrency = 4

type folderRunBody struct {
	Environment string `json:"environment"`
	Concurrency int    `json:"concurrency"`
}

type folderRunResponse struct {
	FolderID string            `json:"folderId"`
	Results  []dispatch.Result `json:"results"`
}

func (s *Service) registerFolderRoutes(api *mux.Router) {
	api.HandleFunc("/folders", s.handleListFolders).Methods(http.MethodGet)
	api.HandleFunc("/folders", s.handleCreateFolder).Methods(http.MethodPost)
	api.HandleFunc("/folders/{id}", s.handleRenameFolder).Methods(http.MethodPatch)
	api.HandleFunc("/folders/{id}", s.handleDeleteFolder).Methods(http.MethodDelete)
	api.HandleFunc("/folders/{id}/toggle", s.handleToggleFolder).Methods(http.MethodPost)
	api.HandleFunc("/folders/{id}/send", s.handleRunFolder).Methods(http.MethodPost)
	api.HandleFunc("/folders/{id}/requests/{requestId}", s.handleAddToFolder).Methods(http.MethodPut)
	api.HandleFunc("/folders/{id}/requests/{requestId}", s.handleRemoveFromFolder).Methods(http.MethodDelete)
}

func (s *Service) handleListFolders(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":        s.store.Folders(),
		"unorganized": s.store.Unorganized(),
	})
}

func (s *Service) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	folder, err := s.store.CreateFolder(body.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, folder)
}

func (s *Service) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.store.RenameFolder(id, body.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondFolder(w, r, id)
}

func (s *Service) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteFolder(mux.Vars(r)["id"]) {
		s.respondError(w, r, workspace.ErrFolderNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleToggleFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.store.ToggleFolder(id) {
		s.respondError(w, r, workspace.ErrFolderNotFound)
		return
	}
	s.respondFolder(w, r, id)
}

func (s *Service) handleAddToFolder(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := s.store.AddRequestToFolder(v["requestId"], v["id"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondFolder(w, r, v["id"])
}

func (s *Service) handleRemoveFromFolder(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.store.RemoveRequestFromFolder(v["requestId"], v["id"]) {
		s.respondNotFound(w, r, "request is not in folder")
		return
	}
	s.respondFolder(w, r, v["id"])
}

// handleRunFolder sends every request of the folder concurrently.
func (s *Service) handleRunFolder(w http.ResponseWriter, r *http.Request) {
	folder, ok := s.store.Folder(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, r, workspace.ErrFolderNotFound)
		return
	}
	body := folderRunBody{Concurrency: defaultRunConcurrency}
	if !s.decode(w, r, &body) {
		return
	}
	resolver, err := s.resolver(body.Environment)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results, err := s.dispatcher.SendAll(r.Context(), folder.Requests, body.Concurrency, dispatch.UsingResolver(resolver))
	if err != nil {
		s.logger.Warn("Folder run interrupted", "folder", folder.ID, "error", err)
	}
	s.respondJSON(w, http.StatusOK, folderRunResponse{FolderID: folder.ID, Results: results})
}

func (s *Service) respondFolder(w http.ResponseWriter, r *http.Request, id string) {
	folder, ok := s.store.Folder(id)
	if !ok {
		s.respondError(w, r, workspace.ErrFolderNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, folder)
}
