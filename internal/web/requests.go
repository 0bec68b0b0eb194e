package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/internal/codegen"
	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

type nameBody struct {
	Name string `json:"name"`
}

type sendBody struct {
	Environment string `json:"environment"`
}

type sendResponse struct {
	Result dispatch.Result     `json:"result"`
	Item   request.RequestItem `json:"item"`
}

type codeResponse struct {
	Template string `json:"template"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (s *Service) registerRequestRoutes(api *mux.Router) {
	api.HandleFunc("/requests", s.handleListRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests", s.handleCreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}", s.handleGetRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", s.handleReplaceRequest).Methods(http.MethodPut)
	api.HandleFunc("/requests/{id}", s.handleRenameRequest).Methods(http.MethodPatch)
	api.HandleFunc("/requests/{id}", s.handleDeleteRequest).Methods(http.MethodDelete)
	api.HandleFunc("/requests/{id}/duplicate", s.handleDuplicateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/activate", s.handleActivateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/send", s.handleSendRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/code", s.handleCode).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/oauth2/token", s.handleFetchToken).Methods(http.MethodPost)
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":            s.store.Requests(),
		"activeRequestId": s.store.ActiveRequestID(),
	})
}

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	s.respondJSON(w, http.StatusCreated, s.store.CreateRequest(body.Name))
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, ok := s.store.Request(id)
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Service) handleReplaceRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	def := request.NewHTTPRequest()
	if !s.decode(w, r, &def) {
		return
	}
	if !s.store.ReplaceRequest(id, def) {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondCurrent(w, r, id)
}

func (s *Service) handleRenameRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.store.RenameRequest(id, body.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondCurrent(w, r, id)
}

func (s *Service) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteRequest(mux.Vars(r)["id"]) {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDuplicateRequest(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.DuplicateRequest(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Service) handleActivateRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.store.SetActiveRequest(id) {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondCurrent(w, r, id)
}

func (s *Service) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body sendBody
	if !s.decode(w, r, &body) {
		return
	}
	if _, ok := s.store.Request(id); !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.send(w, r, id, body.Environment)
}

// send dispatches id and answers with the outcome and the updated item. A
// send skipped because the URL is blank is answered with 204.
func (s *Service) send(w http.ResponseWriter, r *http.Request, id, environment string) {
	resolver, err := s.resolver(environment)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, ok := s.dispatcher.SendRequest(r.Context(), id, dispatch.UsingResolver(resolver))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	item, _ := s.store.Request(id)
	s.respondJSON(w, http.StatusOK, sendResponse{Result: res, Item: item})
}

func (s *Service) handleCode(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Request(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	query := r.URL.Query()
	lang := query.Get("lang")
	if lang == "" {
		lang = "curl"
	}
	tpl, ok := codegen.Lookup(lang)
	if !ok {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, codegen.ErrUnknownTemplate.Error()+": "+lang)
		return
	}

	def := item.Request
	if resolve, _ := strconv.ParseBool(query.Get("resolve")); resolve {
		resolver, err := s.resolver(query.Get("environment"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		def = codegen.Resolve(def, resolver)
	}
	s.respondJSON(w, http.StatusOK, codeResponse{
		Template: tpl.ID,
		Language: tpl.Language,
		Code:     tpl.Generate(def),
	})
}

func (s *Service) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, codegen.Templates())
}

func (s *Service) handleFetchToken(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body sendBody
	if !s.decode(w, r, &body) {
		return
	}
	resolver, err := s.resolver(body.Environment)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.fetcher.Refresh(r.Context(), s.store, id, resolver); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondCurrent(w, r, id)
}

// respondCurrent answers with the current state of request id.
func (s *Service) respondCurrent(w http.ResponseWriter, r *http.Request, id string) {
	item, ok := s.store.Request(id)
	if !ok {
		s.respondError(w, r, workspace.ErrRequestNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}
