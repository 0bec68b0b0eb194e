// Package web exposes the workspace over a local JSON API and streams
// store changes to websocket clients.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqkit/internal/authflow"
	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/i18n"
	"github.com/funnyzak/reqkit/pkg/request"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeYAML  = "application/yaml"
	maxJSONBodyBytes = 1 << 20
	errKeyNotFound   = "errors.not_found"
	errKeyBadRequest = "errors.bad_request"
)

// Deps collects the collaborators a Service serves.
type Deps struct {
	Store      *workspace.Store
	Envs       *vars.Environments
	Dispatcher *dispatch.Dispatcher
	Fetcher    *authflow.Fetcher
	Translator *i18n.Translator
	Logger     logger.Logger
	// Locale is used when a request carries no Accept-Language.
	Locale string
	// Dynamic enables $uuid style placeholders in resolvers built here.
	Dynamic bool
}

// Service bundles the API handlers and the event hub.
type Service struct {
	cfg        *config.ServerConfig
	logger     logger.Logger
	store      *workspace.Store
	envs       *vars.Environments
	dispatcher *dispatch.Dispatcher
	fetcher    *authflow.Fetcher
	translator *i18n.Translator
	locale     string
	dynamic    bool
	hub        *WebsocketHub
	unsubs     []func()
}

// NewService builds a Service and subscribes its hub to both stores.
func NewService(cfg *config.ServerConfig, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = authflow.New(nil, log)
	}
	svc := &Service{
		cfg:        cfg,
		logger:     log,
		store:      deps.Store,
		envs:       deps.Envs,
		dispatcher: deps.Dispatcher,
		fetcher:    fetcher,
		translator: deps.Translator,
		locale:     deps.Locale,
		dynamic:    deps.Dynamic,
		hub:        NewWebsocketHub(log),
	}

	svc.unsubs = append(svc.unsubs,
		svc.store.Subscribe(func(ev workspace.Event) {
			svc.hub.Broadcast(eventMessage{Type: "workspace", Event: &ev})
		}),
		svc.envs.Subscribe(func(snap request.EnvironmentSnapshot) {
			svc.hub.Broadcast(eventMessage{Type: "environments", Environments: &snap})
		}),
	)
	return svc
}

// RegisterRoutes wires the API under the configured prefix.
func (s *Service) RegisterRoutes(router *mux.Router) {
	if s == nil {
		return
	}
	api := router.PathPrefix(normalizePath(s.cfg.APIPath)).Subrouter()
	if s.cfg.CORS {
		api.Use(corsMiddleware)
		api.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleWebsocket).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleTemplates).Methods(http.MethodGet)

	s.registerRequestRoutes(api)
	s.registerActiveRoutes(api)
	s.registerHistoryRoutes(api)
	s.registerFolderRoutes(api)
	s.registerEnvironmentRoutes(api)
}

// Close detaches from the stores and drops websocket clients.
func (s *Service) Close() {
	if s == nil {
		return
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.hub.Close()
}

type stateResponse struct {
	Workspace    request.WorkspaceSnapshot   `json:"workspace"`
	Environments request.EnvironmentSnapshot `json:"environments"`
	Loading      bool                        `json:"loading"`
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, stateResponse{
		Workspace:    s.store.Snapshot(),
		Environments: s.envs.Snapshot(),
		Loading:      s.store.Loading(),
	})
}

func (s *Service) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if _, err := s.hub.Upgrade(w, r); err != nil {
		s.logger.Error("Failed to upgrade websocket", "error", err)
	}
}

// resolver returns the resolver for the named environment, or for the
// active one when name is blank.
func (s *Service) resolver(name string) (*vars.Resolver, error) {
	opt := vars.WithDynamic(s.dynamic)
	if strings.TrimSpace(name) == "" {
		return s.envs.Resolver(opt), nil
	}
	return s.envs.ResolverFor(name, opt)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.respondMessage(w, r, http.StatusBadRequest, errKeyBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code,omitempty"`
}

func (s *Service) respondMessage(w http.ResponseWriter, r *http.Request, status int, key, detail string) {
	s.respondJSON(w, status, errorResponse{Error: s.text(r, key), Detail: detail, Code: key})
}

func (s *Service) respondNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	s.respondMessage(w, r, http.StatusNotFound, errKeyNotFound, detail)
}

// respondError maps store errors onto status codes. Validation failures
// are rendered as 422 with a localized message.
func (s *Service) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *request.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  s.text(r, verr.Code),
			Detail: verr.Message,
			Field:  verr.Field,
			Code:   verr.Code,
		})
	case errors.Is(err, workspace.ErrRequestNotFound),
		errors.Is(err, workspace.ErrFolderNotFound),
		errors.Is(err, workspace.ErrResponseNotFound),
		errors.Is(err, vars.ErrEnvironmentNotFound),
		errors.Is(err, vars.ErrVariableNotFound):
		s.respondNotFound(w, r, err.Error())
	default:
		s.logger.Warn("API request failed", "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}

// translate fills Message with the localized text for each warning.
func (s *Service) translate(r *http.Request, warnings ...*request.ValidationError) []*request.ValidationError {
	var out []*request.ValidationError
	for _, w := range warnings {
		if w == nil {
			continue
		}
		c := *w
		c.Message = s.text(r, w.Code)
		out = append(out, &c)
	}
	return out
}

func (s *Service) text(r *http.Request, key string) string {
	if s.translator == nil {
		return key
	}
	return s.translator.Text(s.requestLocale(r), key)
}

func (s *Service) requestLocale(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return s.locale
	}
	tag := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	if tag == "" || tag == "*" {
		return s.locale
	}
	return s.translator.Match(tag)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
		next.ServeHTTP(w, r)
	})
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
