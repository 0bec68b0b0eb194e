package web

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/pkg/request"
)

type activeEnvironmentBody struct {
	ID string `json:"id"`
}

type variableResponse struct {
	Row          *request.KeyValue           `json:"row,omitempty"`
	Warnings     []*request.ValidationError  `json:"warnings,omitempty"`
	Environments request.EnvironmentSnapshot `json:"environments"`
}

func (s *Service) registerEnvironmentRoutes(api *mux.Router) {
	api.HandleFunc("/environments", s.handleListEnvironments).Methods(http.MethodGet)
	api.HandleFunc("/environments", s.handleCreateEnvironment).Methods(http.MethodPost)
	api.HandleFunc("/environments/active", s.handleSetActiveEnvironment).Methods(http.MethodPut)
	api.HandleFunc("/environments/export", s.handleExportEnvironments).Methods(http.MethodGet)
	api.HandleFunc("/environments/import", s.handleImportEnvironments).Methods(http.MethodPost)
	api.HandleFunc("/environments/{id}", s.handleRenameEnvironment).Methods(http.MethodPatch)
	api.HandleFunc("/environments/{id}", s.handleDeleteEnvironment).Methods(http.MethodDelete)

	for _, prefix := range []string{"/globals", "/environments/{id}"} {
		api.HandleFunc(prefix+"/variables", s.handleAddVariable).Methods(http.MethodPost)
		api.HandleFunc(prefix+"/variables/{varId}", s.handleUpdateVariable).Methods(http.MethodPatch)
		api.HandleFunc(prefix+"/variables/{varId}", s.handleDeleteVariable).Methods(http.MethodDelete)
		api.HandleFunc(prefix+"/variables/{varId}/toggle", s.handleToggleVariable).Methods(http.MethodPost)
	}
}

// scope maps the route onto a variable scope: the environment id, or the
// global scope when the route has none.
func scope(r *http.Request) string {
	if id, ok := mux.Vars(r)["id"]; ok {
		return id
	}
	return vars.GlobalScope
}

func (s *Service) handleListEnvironments(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.envs.Snapshot())
}

func (s *Service) handleCreateEnvironment(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	env, err := s.envs.CreateEnvironment(body.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, env)
}

func (s *Service) handleRenameEnvironment(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.envs.RenameEnvironment(mux.Vars(r)["id"], body.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.envs.Snapshot())
}

func (s *Service) handleDeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	if !s.envs.DeleteEnvironment(mux.Vars(r)["id"]) {
		s.respondError(w, r, vars.ErrEnvironmentNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleSetActiveEnvironment(w http.ResponseWriter, r *http.Request) {
	var body activeEnvironmentBody
	if !s.decode(w, r, &body) {
		return
	}
	if !s.envs.SetActiveEnvironment(body.ID) {
		s.respondError(w, r, vars.ErrEnvironmentNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, s.envs.Snapshot())
}

func (s *Service) handleExportEnvironments(w http.ResponseWriter, r *http.Request) {
	data, err := s.envs.ExportYAML()
	if err != nil {
		s.logger.Error("Environment export failed", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", contentTypeYAML)
	w.Header().Set("Content-Disposition", "attachment; filename=reqkit_environments.yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write environment export", "error", err)
	}
}

func (s *Service) handleImportEnvironments(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return
	}
	if err := s.envs.ImportYAML(data); err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.envs.Snapshot())
}

func (s *Service) handleAddVariable(w http.ResponseWriter, r *http.Request) {
	var body rowBody
	if !s.decode(w, r, &body) {
		return
	}
	row, warn, err := s.envs.AddVariable(scope(r), deref(body.Key), deref(body.Value))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, variableResponse{
		Row:          &row,
		Warnings:     s.translate(r, warn),
		Environments: s.envs.Snapshot(),
	})
}

// handleUpdateVariable edits key, value or both; omitted fields keep their
// current content.
func (s *Service) handleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	var body rowBody
	if !s.decode(w, r, &body) {
		return
	}
	sc, id := scope(r), mux.Vars(r)["varId"]
	current, err := s.variable(sc, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	key, value := current.Key, current.Value
	if body.Key != nil {
		key = *body.Key
	}
	if body.Value != nil {
		value = *body.Value
	}

	warn, err := s.envs.UpdateVariable(sc, id, key, value)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, variableResponse{
		Warnings:     s.translate(r, warn),
		Environments: s.envs.Snapshot(),
	})
}

func (s *Service) handleToggleVariable(w http.ResponseWriter, r *http.Request) {
	if err := s.envs.ToggleVariable(scope(r), mux.Vars(r)["varId"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, variableResponse{Environments: s.envs.Snapshot()})
}

func (s *Service) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	if err := s.envs.DeleteVariable(scope(r), mux.Vars(r)["varId"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, variableResponse{Environments: s.envs.Snapshot()})
}

func (s *Service) variable(sc, id string) (request.KeyValue, error) {
	snap := s.envs.Snapshot()
	rows, found := snap.Globals, sc == vars.GlobalScope
	for _, env := range snap.Environments {
		if env.ID == sc {
			rows, found = env.Variables, true
		}
	}
	if !found {
		return request.KeyValue{}, vars.ErrEnvironmentNotFound
	}
	for _, row := range rows {
		if row.ID == id {
			return row, nil
		}
	}
	return request.KeyValue{}, vars.ErrVariableNotFound
}
