package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/i18n"
	"github.com/funnyzak/reqkit/pkg/request"
)

// noopLogger implements logger.Logger for tests
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

type fakeTransport struct {
	mu       sync.Mutex
	payloads []request.Payload
}

func (f *fakeTransport) Do(ctx context.Context, p *request.Payload) (*request.HTTPResponse, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, *p)
	f.mu.Unlock()
	if strings.Contains(p.URL, "fail") {
		return nil, &request.HTTPError{Message: "Request failed: refused"}
	}
	return &request.HTTPResponse{
		Status:       200,
		StatusText:   "OK",
		Headers:      map[string]string{"Content-Type": "application/json"},
		Body:         `{"ok":true}`,
		BodyPretty:   "{\n  \"ok\": true\n}",
		ResponseTime: 12,
	}, nil
}

func (f *fakeTransport) last() request.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[len(f.payloads)-1]
}

type fixture struct {
	srv   *httptest.Server
	svc   *Service
	store *workspace.Store
	envs  *vars.Environments
	ft    *fakeTransport
}

func newFixture(t *testing.T, cors bool) *fixture {
	t.Helper()
	translator, err := i18n.NewTranslator("en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	store := workspace.New(nil)
	envs := vars.NewEnvironments(nil)
	ft := &fakeTransport{}
	cfg := &config.ServerConfig{APIPath: "/api", CORS: cors, MaxUpload: 1024}
	svc := NewService(cfg, Deps{
		Store:      store,
		Envs:       envs,
		Dispatcher: dispatch.New(store, envs, ft, noopLogger{}),
		Translator: translator,
		Logger:     noopLogger{},
		Locale:     "en",
	})
	router := mux.NewRouter()
	svc.RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		svc.Close()
		srv.Close()
	})
	return &fixture{srv: srv, svc: svc, store: store, envs: envs, ft: ft}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeInto(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestCreateRequestAndState(t *testing.T) {
	f := newFixture(t, false)

	resp, data := f.do(t, http.MethodPost, "/api/requests", map[string]string{"name": "Users"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, data)
	}
	var item request.RequestItem
	decodeInto(t, data, &item)
	if item.Name != "Users" || item.Request.Method != "GET" {
		t.Fatalf("unexpected item %+v", item)
	}

	_, data = f.do(t, http.MethodGet, "/api/state", nil)
	var state stateResponse
	decodeInto(t, data, &state)
	if len(state.Workspace.Requests) != 1 || state.Workspace.ActiveRequestID != item.ID {
		t.Fatalf("unexpected state %+v", state.Workspace)
	}
	if state.Loading {
		t.Fatalf("nothing should be loading")
	}

	resp, _ = f.do(t, http.MethodGet, "/api/requests/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestActiveRequestEditing(t *testing.T) {
	f := newFixture(t, false)

	resp, _ := f.do(t, http.MethodPatch, "/api/active", map[string]string{"url": "https://x"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without an active request, got %d", resp.StatusCode)
	}

	f.store.CreateRequest("r")
	resp, data := f.do(t, http.MethodPatch, "/api/active", map[string]interface{}{
		"method":  "post",
		"url":     "https://api.example.com/users",
		"timeout": 5000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch failed: %d %s", resp.StatusCode, data)
	}
	var out rowResponse
	decodeInto(t, data, &out)
	if out.Item.Request.Method != "POST" || out.Item.Request.Timeout != 5000 {
		t.Fatalf("unexpected request %+v", out.Item.Request)
	}

	resp, _ = f.do(t, http.MethodPatch, "/api/active", map[string]string{"bodyType": "video"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid body type, got %d", resp.StatusCode)
	}

	_, data = f.do(t, http.MethodPost, "/api/active/params", map[string]string{"key": "page", "value": "2"})
	decodeInto(t, data, &out)
	if out.Item.Request.URL != "https://api.example.com/users?page=2" {
		t.Fatalf("params should drive the url, got %s", out.Item.Request.URL)
	}
	if out.Row == nil || !out.Row.Enabled {
		t.Fatalf("added row should be returned enabled: %+v", out.Row)
	}
	rowID := out.Row.ID

	_, data = f.do(t, http.MethodPatch, "/api/active/params/"+rowID, map[string]string{"value": "3"})
	decodeInto(t, data, &out)
	if out.Item.Request.URL != "https://api.example.com/users?page=3" {
		t.Fatalf("unexpected url after value edit %s", out.Item.Request.URL)
	}

	_, data = f.do(t, http.MethodPost, "/api/active/params/"+rowID+"/toggle", nil)
	decodeInto(t, data, &out)
	if out.Item.Request.URL != "https://api.example.com/users" {
		t.Fatalf("disabled param should leave the url, got %s", out.Item.Request.URL)
	}

	resp, _ = f.do(t, http.MethodDelete, "/api/active/headers/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing row, got %d", resp.StatusCode)
	}
}

func TestKeyWarningsAreLocalized(t *testing.T) {
	f := newFixture(t, false)
	f.store.CreateRequest("r")

	_, data := f.do(t, http.MethodPost, "/api/active/params", map[string]string{"key": "bad key", "value": "1"}, "Accept-Language", "es-MX,es;q=0.9")
	var out rowResponse
	decodeInto(t, data, &out)
	if len(out.Warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", out.Warnings)
	}
	w := out.Warnings[0]
	if w.Code != request.CodeInvalidKey || !strings.HasPrefix(w.Message, "Solo se permiten") {
		t.Fatalf("unexpected warning %+v", w)
	}
	if len(out.Item.Request.Params) != 2 {
		t.Fatalf("invalid key must still be applied, got %+v", out.Item.Request.Params)
	}
}

func TestValidationErrorsRenderAs422(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name     string
		lang     string
		body     string
		wantCode string
		wantText string
	}{
		{"blank english", "", "  ", request.CodeNameRequired, "Name is required"},
		{"blank chinese", "zh-CN", "", request.CodeNameRequired, "名称"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": tt.body}, "Accept-Language", tt.lang)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", resp.StatusCode)
			}
			var out errorResponse
			decodeInto(t, data, &out)
			if out.Code != tt.wantCode || !strings.Contains(out.Error, tt.wantText) {
				t.Fatalf("unexpected error %+v", out)
			}
		})
	}

	f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "API"})
	resp, data := f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "api"})
	var out errorResponse
	decodeInto(t, data, &out)
	if resp.StatusCode != http.StatusUnprocessableEntity || out.Code != request.CodeNameExists {
		t.Fatalf("duplicate folder should be rejected: %d %+v", resp.StatusCode, out)
	}
}

func TestSendAndHistory(t *testing.T) {
	f := newFixture(t, false)
	it := f.store.CreateRequest("r")

	resp, _ := f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("blank url should be skipped with 204, got %d", resp.StatusCode)
	}

	f.store.SetURL("https://api.example.com/ok")
	resp, data := f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send failed: %d %s", resp.StatusCode, data)
	}
	var sent sendResponse
	decodeInto(t, data, &sent)
	if sent.Result.Entry.Response == nil || sent.Item.SelectedResponseID != sent.Result.ResponseID {
		t.Fatalf("unexpected send result %+v", sent)
	}

	f.store.SetURL("https://api.example.com/fail")
	_, data = f.do(t, http.MethodPost, "/api/active/send", nil)
	decodeInto(t, data, &sent)
	if sent.Result.Entry.Error == nil || sent.Result.Entry.Error.Status != request.DefaultErrorStatus {
		t.Fatalf("failure should be recorded with the default status: %+v", sent.Result.Entry)
	}

	_, data = f.do(t, http.MethodGet, "/api/requests/"+it.ID+"/history", nil)
	var hist historyResponse
	decodeInto(t, data, &hist)
	if len(hist.Responses) != 2 || hist.Shown == nil || hist.Shown.Error == nil {
		t.Fatalf("newest entry should be shown: %+v", hist)
	}
	oldest := hist.Responses[1].ID

	_, data = f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/history/"+oldest+"/select", nil)
	decodeInto(t, data, &hist)
	if hist.Shown == nil || hist.Shown.ID != oldest {
		t.Fatalf("selection should move to %s: %+v", oldest, hist.Shown)
	}

	resp, data = f.do(t, http.MethodGet, "/api/requests/"+it.ID+"/history/export?format=csv", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.HasPrefix(string(data), "id,timestamp,status") {
		t.Fatalf("csv header missing: %s", data)
	}

	resp, _ = f.do(t, http.MethodDelete, "/api/requests/"+it.ID+"/history/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing entry, got %d", resp.StatusCode)
	}

	_, data = f.do(t, http.MethodDelete, "/api/requests/"+it.ID+"/history", nil)
	hist = historyResponse{}
	decodeInto(t, data, &hist)
	if len(hist.Responses) != 0 || hist.Shown != nil {
		t.Fatalf("history should be cleared: %+v", hist)
	}
}

func TestEnvironmentVariablesResolveOnSend(t *testing.T) {
	f := newFixture(t, false)

	resp, data := f.do(t, http.MethodPost, "/api/environments", map[string]string{"name": "dev"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create environment: %d %s", resp.StatusCode, data)
	}
	var env request.Environment
	decodeInto(t, data, &env)

	_, data = f.do(t, http.MethodPost, "/api/environments/"+env.ID+"/variables", map[string]string{"key": "base", "value": "https://dev.example.com"})
	var vr variableResponse
	decodeInto(t, data, &vr)
	if vr.Row == nil {
		t.Fatalf("expected the new row")
	}
	f.do(t, http.MethodPost, "/api/globals/variables", map[string]string{"key": "base", "value": "https://global.example.com"})
	f.do(t, http.MethodPost, "/api/globals/variables", map[string]string{"key": "token", "value": "abc"})

	it := f.store.CreateRequest("r")
	f.store.SetURL("{{base}}/users?t={{token}}")
	f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", nil)
	if got := f.ft.last().URL; got != "https://dev.example.com/users?t=abc" {
		t.Fatalf("unexpected resolved url %s", got)
	}

	_, data = f.do(t, http.MethodPatch, "/api/environments/"+env.ID+"/variables/"+vr.Row.ID, map[string]string{"value": "https://staging.example.com"})
	decodeInto(t, data, &vr)
	f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", nil)
	if got := f.ft.last().URL; got != "https://staging.example.com/users?t=abc" {
		t.Fatalf("partial update should keep the key, got %s", got)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", map[string]string{"environment": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown environment, got %d", resp.StatusCode)
	}

	f.do(t, http.MethodPut, "/api/environments/active", map[string]string{"id": ""})
	f.do(t, http.MethodPost, "/api/requests/"+it.ID+"/send", nil)
	if got := f.ft.last().URL; got != "https://global.example.com/users?t=abc" {
		t.Fatalf("globals should apply without an environment, got %s", got)
	}

	resp, data = f.do(t, http.MethodGet, "/api/environments/export", nil)
	if resp.Header.Get("Content-Type") != contentTypeYAML || !strings.Contains(string(data), "dev:") {
		t.Fatalf("unexpected export %s", data)
	}
}

func TestCodeGeneration(t *testing.T) {
	f := newFixture(t, false)
	f.envs.SetVariables(vars.GlobalScope, [][2]string{{"host", "example.com"}})
	it := f.store.CreateRequest("r")
	f.store.SetURL("https://{{host}}/a")

	_, data := f.do(t, http.MethodGet, "/api/requests/"+it.ID+"/code?lang=curl", nil)
	var code codeResponse
	decodeInto(t, data, &code)
	if !strings.Contains(code.Code, "https://{{host}}/a") {
		t.Fatalf("unresolved output should keep placeholders: %s", code.Code)
	}

	_, data = f.do(t, http.MethodGet, "/api/requests/"+it.ID+"/code?lang=curl&resolve=true", nil)
	decodeInto(t, data, &code)
	if !strings.Contains(code.Code, "https://example.com/a") {
		t.Fatalf("resolved output should substitute: %s", code.Code)
	}

	resp, _ := f.do(t, http.MethodGet, "/api/requests/"+it.ID+"/code?lang=cobol", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown template, got %d", resp.StatusCode)
	}

	_, data = f.do(t, http.MethodGet, "/api/templates", nil)
	var tpls []map[string]string
	decodeInto(t, data, &tpls)
	if len(tpls) == 0 || tpls[0]["id"] != "curl" {
		t.Fatalf("unexpected templates %v", tpls)
	}
}

func TestFolderRun(t *testing.T) {
	f := newFixture(t, false)
	a := f.store.CreateRequest("a")
	f.store.SetURL("https://api.example.com/a")
	b := f.store.CreateRequest("b")

	_, data := f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Suite"})
	var folder request.Folder
	decodeInto(t, data, &folder)
	f.do(t, http.MethodPut, "/api/folders/"+folder.ID+"/requests/"+a.ID, nil)
	f.do(t, http.MethodPut, "/api/folders/"+folder.ID+"/requests/"+b.ID, nil)

	resp, data := f.do(t, http.MethodPost, "/api/folders/"+folder.ID+"/send", map[string]int{"concurrency": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("folder run failed: %d %s", resp.StatusCode, data)
	}
	var run folderRunResponse
	decodeInto(t, data, &run)
	if len(run.Results) != 2 || run.Results[0].Skipped || !run.Results[1].Skipped {
		t.Fatalf("blank url request should be skipped: %+v", run.Results)
	}
}

func TestBinaryUpload(t *testing.T) {
	f := newFixture(t, false)
	f.store.CreateRequest("r")

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(uploadFieldName, "logo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("\x89PNG"))
	mw.Close()

	resp, err := http.Post(f.srv.URL+"/api/active/binary", mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got, _ := f.store.ActiveRequest()
	if got.Request.BinaryFile == nil || got.Request.BinaryFile.Name != "logo.png" || string(got.Request.BinaryFile.Data) != "\x89PNG" {
		t.Fatalf("unexpected binary file %+v", got.Request.BinaryFile)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, true)
	resp, _ := f.do(t, http.MethodOptions, "/api/requests", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestWebsocketReceivesStoreEvents(t *testing.T) {
	f := newFixture(t, false)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.svc.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	it := f.store.CreateRequest("r")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg eventMessage
	decodeInto(t, data, &msg)
	if msg.Type != "workspace" || msg.Event == nil || msg.Event.Kind != workspace.EventRequestCreated || msg.Event.RequestID != it.ID {
		t.Fatalf("unexpected event %s", data)
	}

	f.envs.CreateEnvironment("dev")
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	decodeInto(t, data, &msg)
	if msg.Type != "environments" || msg.Environments == nil || len(msg.Environments.Environments) != 1 {
		t.Fatalf("unexpected environment event %s", data)
	}
}
