package vars

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funnyzak/reqkit/pkg/request"
)

func TestNewEnvironmentsDefaults(t *testing.T) {
	envs := NewEnvironments(nil)
	snap := envs.Snapshot()
	if len(snap.Environments) != 0 || snap.ActiveEnvironmentID != "" {
		t.Fatalf("unexpected initial state: %+v", snap)
	}
	if len(snap.Globals) != 1 || !snap.Globals[0].Blank() || snap.Globals[0].Enabled {
		t.Fatalf("expected one blank disabled global, got %+v", snap.Globals)
	}
}

func TestCreateEnvironmentValidation(t *testing.T) {
	envs := NewEnvironments(nil)

	env, err := envs.CreateEnvironment(" Staging ")
	if err != nil {
		t.Fatalf("CreateEnvironment failed: %v", err)
	}
	if env.Name != "Staging" || len(env.Variables) != 1 {
		t.Fatalf("unexpected environment: %+v", env)
	}
	if envs.Snapshot().ActiveEnvironmentID != env.ID {
		t.Fatalf("new environment should become active")
	}

	_, err = envs.CreateEnvironment("staging")
	var verr *request.ValidationError
	if !errors.As(err, &verr) || verr.Code != request.CodeNameExists {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	_, err = envs.CreateEnvironment("   ")
	if !errors.As(err, &verr) || verr.Code != request.CodeNameRequired {
		t.Fatalf("expected name required error, got %v", err)
	}
}

func TestRenameEnvironment(t *testing.T) {
	envs := NewEnvironments(nil)
	a, _ := envs.CreateEnvironment("A")
	b, _ := envs.CreateEnvironment("B")

	if err := envs.RenameEnvironment(a.ID, "A"); err != nil {
		t.Fatalf("same name should be a no-op, got %v", err)
	}
	if err := envs.RenameEnvironment(a.ID, "b"); err == nil {
		t.Fatalf("expected collision with %s", b.Name)
	}
	if err := envs.RenameEnvironment(a.ID, "Prod"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if got, _ := envs.Find("prod"); got.ID != a.ID {
		t.Fatalf("expected lookup by name, got %+v", got)
	}
	if err := envs.RenameEnvironment("missing", "x"); !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteActiveEnvironmentClearsPointer(t *testing.T) {
	envs := NewEnvironments(nil)
	a, _ := envs.CreateEnvironment("A")
	b, _ := envs.CreateEnvironment("B")

	if !envs.DeleteEnvironment(a.ID) {
		t.Fatalf("delete failed")
	}
	if envs.Snapshot().ActiveEnvironmentID != b.ID {
		t.Fatalf("deleting an inactive environment must keep the pointer")
	}
	envs.DeleteEnvironment(b.ID)
	if envs.Snapshot().ActiveEnvironmentID != "" {
		t.Fatalf("expected cleared pointer")
	}
	if envs.SetActiveEnvironment("missing") {
		t.Fatalf("unknown id must be rejected")
	}
}

func TestVariableEditsKeepTrailingRow(t *testing.T) {
	envs := NewEnvironments(nil)
	row := envs.Snapshot().Globals[0]

	warn, err := envs.UpdateVariable(GlobalScope, row.ID, "token", "abc")
	if err != nil || warn != nil {
		t.Fatalf("UpdateVariable: %v %v", warn, err)
	}
	globals := envs.Snapshot().Globals
	if len(globals) != 2 || !globals[0].Enabled || !globals[1].Blank() {
		t.Fatalf("expected auto-enable and new trailing row, got %+v", globals)
	}

	warn, err = envs.UpdateVariable(GlobalScope, row.ID, "bad key", "abc")
	if err != nil || warn == nil || warn.Code != request.CodeInvalidKey {
		t.Fatalf("expected key warning, got %v %v", warn, err)
	}
	if envs.Snapshot().Globals[0].Key != "bad key" {
		t.Fatalf("edit must be applied even with a warning")
	}

	if err := envs.DeleteVariable(GlobalScope, row.ID); err != nil {
		t.Fatalf("DeleteVariable: %v", err)
	}
	if globals := envs.Snapshot().Globals; len(globals) != 1 || !globals[0].Blank() {
		t.Fatalf("expected only the trailing row, got %+v", globals)
	}
}

func TestActiveResolver(t *testing.T) {
	envs := NewEnvironments(nil)
	envs.SetVariables(GlobalScope, [][2]string{{"host", "global.local"}, {"v", "1"}})
	env, _ := envs.CreateEnvironment("dev")
	envs.SetVariables(env.ID, [][2]string{{"host", "dev.local"}})

	if got := envs.Resolver().Resolve("{{host}}/{{v}}"); got != "dev.local/1" {
		t.Fatalf("unexpected resolution %q", got)
	}
	envs.SetActiveEnvironment("")
	if got := envs.Resolver().Resolve("{{host}}"); got != "global.local" {
		t.Fatalf("unexpected resolution %q", got)
	}
	r, err := envs.ResolverFor("DEV")
	if err != nil || r.Resolve("{{host}}") != "dev.local" {
		t.Fatalf("ResolverFor failed: %v", err)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	envs := NewEnvironments(nil)
	var got []request.EnvironmentSnapshot
	cancel := envs.Subscribe(func(s request.EnvironmentSnapshot) { got = append(got, s) })

	envs.CreateEnvironment("A")
	if len(got) != 1 || len(got[0].Environments) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	cancel()
	envs.CreateEnvironment("B")
	if len(got) != 1 {
		t.Fatalf("cancelled listener must not be called")
	}
}

func TestImportDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TOKEN=abc\nHOST=\"api.local\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	envs := NewEnvironments(nil)
	env, _ := envs.CreateEnvironment("dotenv")

	n, err := envs.ImportDotenv(env.ID, path)
	if err != nil || n != 2 {
		t.Fatalf("ImportDotenv = %d, %v", n, err)
	}
	if got := envs.Resolver().Resolve("{{HOST}}:{{TOKEN}}"); got != "api.local:abc" {
		t.Fatalf("unexpected resolution %q", got)
	}
}

func TestYAMLExportImport(t *testing.T) {
	src := NewEnvironments(nil)
	src.SetVariables(GlobalScope, [][2]string{{"g", "1"}})
	env, _ := src.CreateEnvironment("Prod")
	src.SetVariables(env.ID, [][2]string{{"host", "prod.local"}})

	data, err := src.ExportYAML()
	if err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	if !strings.Contains(string(data), "Prod") {
		t.Fatalf("expected environment name in export:\n%s", data)
	}

	dst := NewEnvironments(nil)
	if err := dst.ImportYAML(data); err != nil {
		t.Fatalf("ImportYAML: %v", err)
	}
	if got := dst.Resolver().Resolve("{{g}}-{{host}}"); got != "1-prod.local" {
		t.Fatalf("unexpected resolution after import %q", got)
	}
}
