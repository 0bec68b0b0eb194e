package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestStore(t *testing.T, driver string) Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reqkit.db")
	if driver == "json" {
		path = filepath.Join(dir, "data")
	}
	store, err := New(&config.StorageConfig{Driver: driver, Path: path}, noopLogger{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func sampleWorkspace() request.WorkspaceSnapshot {
	now := time.UnixMilli(1_700_000_000_000)
	a := request.NewRequestItem(now)
	a.Name = "List users"
	a.Request.Method = "POST"
	a.Request.URL = "https://api.example.com/users?page=1"
	a.Request.Headers = []request.KeyValue{
		{ID: "h1", Key: "Accept", Value: "application/json", Enabled: true},
		{ID: "h2"},
	}
	a.Request.Auth = request.Auth{Type: request.AuthBearer, Bearer: &request.BearerAuth{Token: "t", TokenType: "Bearer"}}
	a.Request.BodyType = request.BodyBinary
	a.Request.BinaryFile = &request.BinaryFile{Name: "x.bin", Data: []byte{1, 2, 3}}
	a.Responses = []request.ResponseHistoryItem{
		request.NewSuccessItem("response_2", now.Add(2*time.Second), &request.HTTPResponse{
			Status: 200, StatusText: "OK", Headers: map[string]string{"content-type": "application/json"},
			Body: `{"ok":true}`, BodyPretty: "{\n  \"ok\": true\n}", ResponseTime: 12,
		}),
		request.NewErrorItem("response_1", now.Add(time.Second), &request.HTTPError{Message: "Request failed: refused"}),
	}
	a.SelectedResponseID = "response_1"

	b := request.NewRequestItem(now)
	b.Name = "Health"

	folder := request.NewFolder("Users")
	folder.Expanded = false
	folder.Requests = []string{a.ID}

	return request.WorkspaceSnapshot{
		Requests:        []request.RequestItem{a, b},
		Folders:         []request.Folder{folder},
		ActiveRequestID: b.ID,
	}
}

func sampleEnvironments() request.EnvironmentSnapshot {
	dev := request.NewEnvironment("dev")
	dev.Variables = []request.KeyValue{
		{ID: "v1", Key: "host", Value: "dev.example.com", Enabled: true},
		{ID: "v2"},
	}
	prod := request.NewEnvironment("prod")
	return request.EnvironmentSnapshot{
		Environments:        []request.Environment{dev, prod},
		Globals:             []request.KeyValue{{ID: "g1", Key: "token", Value: "abc", Enabled: false}, {ID: "g2"}},
		ActiveEnvironmentID: dev.ID,
	}
}

func TestStore_EmptyLoad(t *testing.T) {
	for _, driver := range []string{"sqlite", "json"} {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			ws, err := store.LoadWorkspace()
			if err != nil || ws != nil {
				t.Fatalf("expected nil workspace, got %v %v", ws, err)
			}
			envs, err := store.LoadEnvironments()
			if err != nil || envs != nil {
				t.Fatalf("expected nil environments, got %v %v", envs, err)
			}
		})
	}
}

func TestStore_WorkspaceRoundTrip(t *testing.T) {
	for _, driver := range []string{"sqlite", "json"} {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			want := sampleWorkspace()
			if err := store.SaveWorkspace(want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.LoadWorkspace()
			if err != nil || got == nil {
				t.Fatalf("load: %v", err)
			}

			if len(got.Requests) != 2 || got.Requests[0].ID != want.Requests[0].ID || got.Requests[1].Name != "Health" {
				t.Fatalf("requests not restored in order: %+v", got.Requests)
			}
			a := got.Requests[0]
			if a.Request.Method != "POST" || a.Request.Auth.Bearer == nil || a.Request.Auth.Bearer.Token != "t" {
				t.Fatalf("definition lost: %+v", a.Request)
			}
			if a.Request.BinaryFile == nil || len(a.Request.BinaryFile.Data) != 3 {
				t.Fatalf("binary file lost")
			}
			if len(a.Responses) != 2 || a.Responses[0].ID != "response_2" || a.Responses[1].Error == nil {
				t.Fatalf("history not restored newest first: %+v", a.Responses)
			}
			if a.Responses[1].Error.Status != request.DefaultErrorStatus {
				t.Fatalf("error status lost: %+v", a.Responses[1].Error)
			}
			if a.Responses[0].Response.BodyPretty == "" || a.Responses[0].Response.Headers["content-type"] == "" {
				t.Fatalf("response fields lost: %+v", a.Responses[0].Response)
			}
			if a.SelectedResponseID != "response_1" {
				t.Fatalf("selection lost")
			}
			if len(got.Folders) != 1 || got.Folders[0].Expanded || !got.Folders[0].Contains(a.ID) {
				t.Fatalf("folders not restored: %+v", got.Folders)
			}
			if got.ActiveRequestID != want.ActiveRequestID {
				t.Fatalf("active request lost")
			}

			// A second save replaces rather than appends.
			want.Requests = want.Requests[1:]
			want.Folders = nil
			if err := store.SaveWorkspace(want); err != nil {
				t.Fatalf("resave: %v", err)
			}
			got, _ = store.LoadWorkspace()
			if len(got.Requests) != 1 || len(got.Folders) != 0 {
				t.Fatalf("expected replaced state, got %+v", got)
			}
		})
	}
}

func TestStore_EnvironmentsRoundTrip(t *testing.T) {
	for _, driver := range []string{"sqlite", "json"} {
		t.Run(driver, func(t *testing.T) {
			store := newTestStore(t, driver)
			want := sampleEnvironments()
			if err := store.SaveEnvironments(want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.LoadEnvironments()
			if err != nil || got == nil {
				t.Fatalf("load: %v", err)
			}
			if len(got.Environments) != 2 || got.Environments[0].Name != "dev" || got.Environments[1].Name != "prod" {
				t.Fatalf("environments lost: %+v", got.Environments)
			}
			if len(got.Environments[0].Variables) != 2 || got.Environments[0].Variables[0].Value != "dev.example.com" {
				t.Fatalf("variables lost: %+v", got.Environments[0].Variables)
			}
			if len(got.Globals) != 2 || got.Globals[0].Enabled {
				t.Fatalf("globals lost: %+v", got.Globals)
			}
			if got.ActiveEnvironmentID != want.ActiveEnvironmentID {
				t.Fatalf("active environment lost")
			}
		})
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(&config.StorageConfig{Driver: "mongo", Path: "x"}, noopLogger{}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
	if _, err := New(nil, noopLogger{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestJSONStore_NoTempFilesLeft(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store, err := New(&config.StorageConfig{Driver: "json", Path: dir}, noopLogger{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.SaveWorkspace(sampleWorkspace()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != workspaceFile {
		t.Fatalf("unexpected files: %v", entries)
	}
}

func TestBindPersistsMutations(t *testing.T) {
	store := newTestStore(t, "sqlite")
	ws := workspace.New(nil)
	envs := vars.NewEnvironments(nil)
	stop := Bind(store, ws, envs, noopLogger{})

	item := ws.CreateRequest("saved")
	ws.SetURL("https://example.com")
	if _, err := envs.CreateEnvironment("dev"); err != nil {
		t.Fatalf("create env: %v", err)
	}

	gotWS, gotEnv, err := Restore(store)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if gotWS == nil || len(gotWS.Requests) != 1 || gotWS.Requests[0].Request.URL != "https://example.com" {
		t.Fatalf("workspace not persisted: %+v", gotWS)
	}
	if gotWS.ActiveRequestID != item.ID {
		t.Fatalf("active id not persisted")
	}
	if gotEnv == nil || len(gotEnv.Environments) != 1 {
		t.Fatalf("environments not persisted: %+v", gotEnv)
	}

	stop()
	ws.RenameRequest(item.ID, "renamed")
	gotWS, _, _ = Restore(store)
	if gotWS.Requests[0].Name != "saved" {
		t.Fatalf("save ran after stop")
	}
}
