package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

type historyResponse struct {
	RequestID          string                        `json:"requestId"`
	SelectedResponseID string                        `json:"selectedResponseId,omitempty"`
	Shown              *request.ResponseHistoryItem  `json:"shown,omitempty"`
	Responses          []request.ResponseHistoryItem `json:"responses"`
}

func (s *Service) registerHistoryRoutes(api *mux.Router) {
	api.HandleFunc("/requests/{id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/history", s.handleClearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/requests/{id}/history/export", s.handleExportHistory).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/history/{responseId}/select", s.handleSelectResponse).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/history/{responseId}", s.handleDeleteResponse).Methods(http.MethodDelete)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respondHistory(w, r, mux.Vars(r)["id"])
}

func (s *Service) respondHistory(w http.ResponseWriter, r *http.Request, id string) {
	item, ok := s.store.Request(id)
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	resp := historyResponse{
		RequestID:          item.ID,
		SelectedResponseID: item.SelectedResponseID,
		Responses:          item.Responses,
	}
	if resp.Responses == nil {
		resp.Responses = []request.ResponseHistoryItem{}
	}
	if shown, ok := item.ShownResponse(); ok {
		resp.Shown = &shown
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Service) handleSelectResponse(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.store.SelectResponse(v["id"], v["responseId"]) {
		s.respondError(w, r, s.historyMiss(v["id"]))
		return
	}
	s.respondHistory(w, r, v["id"])
}

func (s *Service) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.store.DeleteResponse(v["id"], v["responseId"]) {
		s.respondError(w, r, s.historyMiss(v["id"]))
		return
	}
	s.respondHistory(w, r, v["id"])
}

func (s *Service) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.store.ClearResponses(id) {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondHistory(w, r, id)
}

func (s *Service) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Request(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	data, contentType, ext, err := ExportHistory(item, format)
	if err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("reqkit_history_%s_%d.%s", item.ID, time.Now().Unix(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write history export", "error", err)
	}
}

// historyMiss tells a missing request apart from a missing entry.
func (s *Service) historyMiss(requestID string) error {
	if _, ok := s.store.Request(requestID); !ok {
		return workspace.ErrRequestNotFound
	}
	return workspace.ErrResponseNotFound
}
