package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/pkg/request"
)

const (
	errKeyNoActive     = "errors.no_active"
	errKeyInvalidValue = "errors.invalid_value"
	uploadFieldName    = "file"
)

var errRowNotFound = errors.New("row not found")

// activePatch carries the field edits for the active request. Nil fields
// are left alone.
type activePatch struct {
	Method            *string              `json:"method"`
	URL               *string              `json:"url"`
	Body              *string              `json:"body"`
	BodyType          *request.BodyType    `json:"bodyType"`
	TextSubtype       *request.TextSubtype `json:"textSubtype"`
	FormSubtype       *request.FormSubtype `json:"formSubtype"`
	Timeout           *int64               `json:"timeout"`
	ActiveRequestTab  *string              `json:"activeRequestTab"`
	ActiveResponseTab *string              `json:"activeResponseTab"`
}

type rowBody struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

type authTypeBody struct {
	Type request.AuthType `json:"type"`
}

type credentialBody struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type rowResponse struct {
	Row      *request.KeyValue          `json:"row,omitempty"`
	Warnings []*request.ValidationError `json:"warnings,omitempty"`
	Item     request.RequestItem        `json:"item"`
}

func (s *Service) registerActiveRoutes(api *mux.Router) {
	api.HandleFunc("/active", s.handleGetActive).Methods(http.MethodGet)
	api.HandleFunc("/active", s.handlePatchActive).Methods(http.MethodPatch)
	api.HandleFunc("/active", s.handleClearActive).Methods(http.MethodDelete)
	api.HandleFunc("/active/send", s.handleSendActive).Methods(http.MethodPost)
	api.HandleFunc("/active/auth", s.handleSetAuth).Methods(http.MethodPut)
	api.HandleFunc("/active/auth/type", s.handleSetAuthType).Methods(http.MethodPut)
	api.HandleFunc("/active/auth/credentials", s.handleUpdateCredential).Methods(http.MethodPut)
	api.HandleFunc("/active/binary", s.handleUploadBinary).Methods(http.MethodPost)
	api.HandleFunc("/active/binary", s.handleDetachBinary).Methods(http.MethodDelete)

	for _, list := range []string{"headers", "params"} {
		api.HandleFunc("/active/"+list, func(w http.ResponseWriter, r *http.Request) {
			s.handleAddRow(w, r, list)
		}).Methods(http.MethodPost)
		api.HandleFunc("/active/"+list+"/{rowId}", func(w http.ResponseWriter, r *http.Request) {
			s.handleUpdateRow(w, r, list)
		}).Methods(http.MethodPatch)
		api.HandleFunc("/active/"+list+"/{rowId}/toggle", func(w http.ResponseWriter, r *http.Request) {
			s.handleToggleRow(w, r, list)
		}).Methods(http.MethodPost)
		api.HandleFunc("/active/"+list+"/{rowId}", func(w http.ResponseWriter, r *http.Request) {
			s.handleRemoveRow(w, r, list)
		}).Methods(http.MethodDelete)
	}
}

// active writes 409 and reports false when no request is active.
func (s *Service) active(w http.ResponseWriter, r *http.Request) (request.RequestItem, bool) {
	item, ok := s.store.ActiveRequest()
	if !ok {
		s.respondMessage(w, r, http.StatusConflict, errKeyNoActive, "")
	}
	return item, ok
}

func (s *Service) respondActive(w http.ResponseWriter, r *http.Request, warnings []*request.ValidationError, row *request.KeyValue) {
	item, ok := s.active(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, rowResponse{Row: row, Warnings: warnings, Item: item})
}

func (s *Service) handleGetActive(w http.ResponseWriter, r *http.Request) {
	if item, ok := s.active(w, r); ok {
		s.respondJSON(w, http.StatusOK, item)
	}
}

func (s *Service) handleClearActive(w http.ResponseWriter, r *http.Request) {
	s.store.SetActiveRequest("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePatchActive(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	var patch activePatch
	if !s.decode(w, r, &patch) {
		return
	}

	// Edits apply in field order; the first rejected one stops the rest.
	var field string
	switch {
	case patch.Method != nil && !applied(s.store.SetMethod(*patch.Method)):
		field = "method"
	case patch.URL != nil && !applied(s.store.SetURL(*patch.URL)):
		field = "url"
	case patch.Body != nil && !applied(s.store.SetBody(*patch.Body)):
		field = "body"
	case patch.BodyType != nil && !applied(s.store.SetBodyType(*patch.BodyType)):
		field = "bodyType"
	case patch.TextSubtype != nil && !applied(s.store.SetTextSubtype(*patch.TextSubtype)):
		field = "textSubtype"
	case patch.FormSubtype != nil && !applied(s.store.SetFormSubtype(*patch.FormSubtype)):
		field = "formSubtype"
	case patch.Timeout != nil && !applied(s.store.SetTimeout(*patch.Timeout)):
		field = "timeout"
	case patch.ActiveRequestTab != nil && !applied(s.store.SetActiveRequestTab(*patch.ActiveRequestTab)):
		field = "activeRequestTab"
	case patch.ActiveResponseTab != nil && !applied(s.store.SetActiveResponseTab(*patch.ActiveResponseTab)):
		field = "activeResponseTab"
	}
	if field != "" {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyInvalidValue, field)
		return
	}
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleSendActive(w http.ResponseWriter, r *http.Request) {
	item, ok := s.active(w, r)
	if !ok {
		return
	}
	var body sendBody
	if !s.decode(w, r, &body) {
		return
	}
	s.send(w, r, item.ID, body.Environment)
}

func (s *Service) handleSetAuth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	var auth request.Auth
	if !s.decode(w, r, &auth) {
		return
	}
	if _, ok := s.store.SetAuth(auth); !ok {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyInvalidValue, "type")
		return
	}
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleSetAuthType(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	var body authTypeBody
	if !s.decode(w, r, &body) {
		return
	}
	if _, ok := s.store.SetAuthType(body.Type); !ok {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyInvalidValue, "type")
		return
	}
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	var body credentialBody
	if !s.decode(w, r, &body) {
		return
	}
	if _, ok := s.store.UpdateCredential(body.Field, body.Value); !ok {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyInvalidValue, body.Field)
		return
	}
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleUploadBinary(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload)
	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return
	}
	s.store.SetBinaryFile(&request.BinaryFile{Name: header.Filename, Data: data})
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleDetachBinary(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	s.store.SetBinaryFile(nil)
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleAddRow(w http.ResponseWriter, r *http.Request, list string) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	var body rowBody
	if !s.decode(w, r, &body) {
		return
	}
	key, value := deref(body.Key), deref(body.Value)

	var (
		row  request.KeyValue
		warn *request.ValidationError
		ok   bool
	)
	if list == "headers" {
		row, ok = s.store.AddHeader(key, value)
	} else {
		row, warn, ok = s.store.AddParam(key, value)
	}
	if !ok {
		s.respondMessage(w, r, http.StatusConflict, errKeyNoActive, "")
		return
	}
	s.respondActive(w, r, s.translate(r, warn), &row)
}

func (s *Service) handleUpdateRow(w http.ResponseWriter, r *http.Request, list string) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	id := mux.Vars(r)["rowId"]
	var body rowBody
	if !s.decode(w, r, &body) {
		return
	}

	var warn *request.ValidationError
	ok := true
	switch {
	case body.Key != nil && body.Value != nil && list == "headers":
		ok = s.store.UpdateHeader(id, *body.Key, *body.Value)
	case body.Key != nil && body.Value != nil:
		warn, ok = s.store.UpdateParam(id, *body.Key, *body.Value)
	case body.Key != nil && list == "headers":
		ok = s.store.UpdateHeaderKey(id, *body.Key)
	case body.Key != nil:
		warn, ok = s.store.UpdateParamKey(id, *body.Key)
	case body.Value != nil && list == "headers":
		ok = s.store.UpdateHeaderValue(id, *body.Value)
	case body.Value != nil:
		ok = s.store.UpdateParamValue(id, *body.Value)
	}
	if !ok {
		s.respondNotFound(w, r, errRowNotFound.Error())
		return
	}
	s.respondActive(w, r, s.translate(r, warn), nil)
}

func (s *Service) handleToggleRow(w http.ResponseWriter, r *http.Request, list string) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	id := mux.Vars(r)["rowId"]
	toggle := s.store.ToggleParam
	if list == "headers" {
		toggle = s.store.ToggleHeader
	}
	if !toggle(id) {
		s.respondNotFound(w, r, errRowNotFound.Error())
		return
	}
	s.respondActive(w, r, nil, nil)
}

func (s *Service) handleRemoveRow(w http.ResponseWriter, r *http.Request, list string) {
	if _, ok := s.active(w, r); !ok {
		return
	}
	id := mux.Vars(r)["rowId"]
	remove := s.store.RemoveParam
	if list == "headers" {
		remove = s.store.RemoveHeader
	}
	if !remove(id) {
		s.respondNotFound(w, r, errRowNotFound.Error())
		return
	}
	s.respondActive(w, r, nil, nil)
}

func applied(_ request.RequestItem, ok bool) bool { return ok }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
