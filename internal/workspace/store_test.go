package workspace

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/funnyzak/reqkit/pkg/request"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := time.UnixMilli(1_700_000_000_000)
	return New(nil, WithClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}))
}

func assertRowShape(t *testing.T, rows []request.KeyValue) {
	t.Helper()
	if len(rows) == 0 {
		t.Fatalf("empty row list")
	}
	last := rows[len(rows)-1]
	if !last.Blank() || last.Active() {
		t.Fatalf("expected trailing blank row, got %+v", last)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Blank() && rows[i-1].Blank() {
			t.Fatalf("two consecutive blank rows: %+v", rows)
		}
	}
}

func TestMutationWithoutActiveIsNoop(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Subscribe(func(Event) { calls++ })

	if _, ok := s.SetURL("http://x"); ok {
		t.Fatalf("expected no-op")
	}
	if _, ok := s.AddHeader("a", "b"); ok {
		t.Fatalf("expected no-op")
	}
	if calls != 0 {
		t.Fatalf("no-op must not notify, got %d", calls)
	}
}

func TestCreateRequestBecomesActive(t *testing.T) {
	s := newTestStore(t)
	a := s.CreateRequest("")
	b := s.CreateRequest("  Login ")

	if a.Name != request.DefaultRequestName || b.Name != "Login" {
		t.Fatalf("unexpected names %q %q", a.Name, b.Name)
	}
	if s.ActiveRequestID() != b.ID {
		t.Fatalf("expected newest request active")
	}
	if found, ok := s.Find("login"); !ok || found.ID != b.ID {
		t.Fatalf("expected find by name")
	}
}

func TestMutationBumpsUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	it := s.CreateRequest("r")
	updated, ok := s.SetMethod("patch")
	if !ok || updated.Request.Method != "PATCH" {
		t.Fatalf("SetMethod failed: %+v", updated.Request.Method)
	}
	if updated.UpdatedAt <= it.UpdatedAt {
		t.Fatalf("updatedAt not bumped: %d <= %d", updated.UpdatedAt, it.UpdatedAt)
	}
}

func TestHeaderAutoGrowAndAutoEnable(t *testing.T) {
	s := newTestStore(t)
	it := s.CreateRequest("r")
	first := it.Request.Headers[0]

	if !s.UpdateHeaderValue(first.ID, "v") {
		t.Fatalf("UpdateHeaderValue failed")
	}
	got, _ := s.ActiveRequest()
	if !got.Request.Headers[0].Enabled {
		t.Fatalf("expected auto-enable on value edit")
	}
	if len(got.Request.Headers) != 2 {
		t.Fatalf("expected a new trailing row, got %+v", got.Request.Headers)
	}
	assertRowShape(t, got.Request.Headers)

	s.UpdateHeader(first.ID, "", "")
	got, _ = s.ActiveRequest()
	if !got.Request.Headers[0].Enabled {
		t.Fatalf("clearing must not disable the stored flag")
	}
	assertRowShape(t, got.Request.Headers)

	s.UpdateHeaderKey(first.ID, "Accept")
	s.UpdateHeaderValue(first.ID, "*/*")
	s.ToggleHeader(first.ID)
	got, _ = s.ActiveRequest()
	if got.Request.Headers[0].Enabled {
		t.Fatalf("toggle should disable")
	}
	s.RemoveHeader(first.ID)
	got, _ = s.ActiveRequest()
	if len(got.Request.Headers) != 1 {
		t.Fatalf("expected only trailing row, got %+v", got.Request.Headers)
	}
	assertRowShape(t, got.Request.Headers)
}

func TestParamsDriveURL(t *testing.T) {
	s := newTestStore(t)
	s.CreateRequest("r")
	s.SetURL("https://api.example.com/x?stale=1")

	a, _, _ := s.AddParam("a", "1")
	b, _, _ := s.AddParam("b", "2")
	got, _ := s.ActiveRequest()
	if got.Request.URL != "https://api.example.com/x?a=1&b=2" {
		t.Fatalf("unexpected url %s", got.Request.URL)
	}
	assertRowShape(t, got.Request.Params)

	s.ToggleParam(b.ID)
	got, _ = s.ActiveRequest()
	if got.Request.URL != "https://api.example.com/x?a=1" {
		t.Fatalf("unexpected url %s", got.Request.URL)
	}

	s.ToggleParam(a.ID)
	got, _ = s.ActiveRequest()
	if got.Request.URL != "https://api.example.com/x" {
		t.Fatalf("expected bare base url, got %s", got.Request.URL)
	}

	s.SetURL("https://api.example.com/y?manual=1")
	got, _ = s.ActiveRequest()
	if got.Request.URL != "https://api.example.com/y?manual=1" {
		t.Fatalf("URL edits must be stored verbatim, got %s", got.Request.URL)
	}
	for _, p := range got.Request.Params {
		if p.Key == "manual" {
			t.Fatalf("URL query must not populate params")
		}
	}
}

func TestParamKeyWarning(t *testing.T) {
	s := newTestStore(t)
	s.CreateRequest("r")
	row, warn, ok := s.AddParam("bad key", "1")
	if !ok || warn == nil || warn.Code != request.CodeInvalidKey {
		t.Fatalf("expected warning, got %v %v", warn, ok)
	}
	if warn, ok := s.UpdateParam(row.ID, "good_key", "1"); !ok || warn != nil {
		t.Fatalf("unexpected warning %v", warn)
	}
}

func TestAuthTypeSwitchRemovesHeaders(t *testing.T) {
	s := newTestStore(t)
	s.CreateRequest("r")
	s.SetAuthType(request.AuthBearer)
	s.UpdateCredential("token", "abc")

	got, _ := s.ActiveRequest()
	if n := countHeader(got.Request.Headers, "Authorization"); n != 1 {
		t.Fatalf("expected one Authorization header, got %d", n)
	}
	assertRowShape(t, got.Request.Headers)

	s.SetAuthType(request.AuthNone)
	got, _ = s.ActiveRequest()
	if n := countHeader(got.Request.Headers, "Authorization"); n != 0 {
		t.Fatalf("expected Authorization removed, got %d", n)
	}

	s.SetAuthType(request.AuthBearer)
	s.SetAuthType(request.AuthAPIKey)
	s.UpdateCredential("apiKey", "k")
	got, _ = s.ActiveRequest()
	if n := countHeader(got.Request.Headers, "Authorization"); n != 0 {
		t.Fatalf("stale Authorization header after switching to apikey")
	}
	if n := countHeader(got.Request.Headers, "X-API-Key"); n != 1 {
		t.Fatalf("expected api key header")
	}

	if _, ok := s.UpdateCredential("bogus", "x"); ok {
		t.Fatalf("unknown credential field must be a no-op")
	}
	if _, ok := s.SetAuthType("kerberos"); ok {
		t.Fatalf("unknown auth type must be a no-op")
	}
}

func countHeader(rows []request.KeyValue, key string) int {
	n := 0
	for _, r := range rows {
		if strings.EqualFold(r.Key, key) {
			n++
		}
	}
	return n
}

func TestRenamedAuthHeaderIsReplaced(t *testing.T) {
	s := newTestStore(t)
	s.CreateRequest("r")
	s.SetAuthType(request.AuthCustom)
	s.UpdateCredential("customKey", "X-Sig")
	s.UpdateCredential("customValue", "1")
	s.UpdateCredential("customKey", "X-New")

	got, _ := s.ActiveRequest()
	if n := countHeader(got.Request.Headers, "X-Sig"); n != 0 {
		t.Fatalf("old custom header left behind: %+v", got.Request.Headers)
	}
	if n := countHeader(got.Request.Headers, "X-New"); n != 1 {
		t.Fatalf("expected one X-New header, got %d", n)
	}

	s.SetAuthType(request.AuthAPIKey)
	s.UpdateCredential("apiKey", "k")
	s.UpdateCredential("apiKeyName", "X-Key")
	s.UpdateCredential("apiKeyName", "X-Other")

	got, _ = s.ActiveRequest()
	for _, stale := range []string{"X-Sig", "X-New", "X-Key", "X-API-Key"} {
		if n := countHeader(got.Request.Headers, stale); n != 0 {
			t.Fatalf("stale %s header: %+v", stale, got.Request.Headers)
		}
	}
	if n := countHeader(got.Request.Headers, "X-Other"); n != 1 {
		t.Fatalf("expected one X-Other header, got %d", n)
	}
	assertRowShape(t, got.Request.Headers)

	s.SetAuthType(request.AuthNone)
	got, _ = s.ActiveRequest()
	if n := countHeader(got.Request.Headers, "X-Other"); n != 0 {
		t.Fatalf("api key header kept after switching to none")
	}
}

func TestSetOAuth2TokenForKeepsOtherFields(t *testing.T) {
	s := newTestStore(t)
	item := s.CreateRequest("r")
	s.SetAuthType(request.AuthOAuth2)
	s.UpdateCredential("scope", "read")

	if !s.SetOAuth2TokenFor(item.ID, "tok", "Bearer") {
		t.Fatalf("expected token to be stored")
	}
	got, _ := s.Request(item.ID)
	if got.Request.Auth.OAuth2.Scope != "read" || got.Request.Auth.OAuth2.AccessToken != "tok" {
		t.Fatalf("unexpected oauth2 state %+v", got.Request.Auth.OAuth2)
	}
	if n := countHeader(got.Request.Headers, "Authorization"); n != 1 {
		t.Fatalf("expected Authorization header, got %d", n)
	}

	s.SetAuthType(request.AuthBearer)
	if s.SetOAuth2TokenFor(item.ID, "late", "Bearer") {
		t.Fatalf("token must not be stored once the scheme changed")
	}
	if s.SetOAuth2TokenFor("missing", "tok", "Bearer") {
		t.Fatalf("unknown request must be rejected")
	}
}

func TestDeleteRequestFallsBackAndPrunesFolders(t *testing.T) {
	s := newTestStore(t)
	a := s.CreateRequest("a")
	b := s.CreateRequest("b")
	c := s.CreateRequest("c")
	f, err := s.CreateFolder("F")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	s.AddRequestToFolder(c.ID, f.ID)

	if !s.DeleteRequest(c.ID) {
		t.Fatalf("delete failed")
	}
	if s.ActiveRequestID() != b.ID {
		t.Fatalf("expected fallback to last remaining request, got %s", s.ActiveRequestID())
	}
	folder, _ := s.Folder(f.ID)
	if len(folder.Requests) != 0 {
		t.Fatalf("folder still references deleted request")
	}

	s.SetActiveRequest(a.ID)
	s.DeleteRequest(b.ID)
	if s.ActiveRequestID() != a.ID {
		t.Fatalf("deleting an inactive request must not move the pointer")
	}
	s.DeleteRequest(a.ID)
	if s.ActiveRequestID() != "" {
		t.Fatalf("expected no active request")
	}
}

func TestFolderExclusivity(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")
	a, _ := s.CreateFolder("A")
	b, _ := s.CreateFolder("B")

	s.AddRequestToFolder(r.ID, a.ID)
	s.AddRequestToFolder(r.ID, b.ID)
	s.AddRequestToFolder(r.ID, b.ID)

	fa, _ := s.Folder(a.ID)
	fb, _ := s.Folder(b.ID)
	if fa.Contains(r.ID) {
		t.Fatalf("request still in folder A")
	}
	if len(fb.Requests) != 1 || fb.Requests[0] != r.ID {
		t.Fatalf("expected request exactly once in B, got %v", fb.Requests)
	}

	if err := s.AddRequestToFolder("missing", b.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if err := s.AddRequestToFolder(r.ID, "missing"); !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
}

func TestFolderValidationAndDelete(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")
	f, _ := s.CreateFolder("Users")

	var verr *request.ValidationError
	if _, err := s.CreateFolder("users"); !errors.As(err, &verr) || verr.Code != request.CodeNameExists {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := s.CreateFolder(" "); !errors.As(err, &verr) || verr.Code != request.CodeNameRequired {
		t.Fatalf("expected name required, got %v", err)
	}
	if err := s.RenameFolder(f.ID, "Users"); err != nil {
		t.Fatalf("same-name rename should be a no-op: %v", err)
	}

	s.AddRequestToFolder(r.ID, f.ID)
	s.ToggleFolder(f.ID)
	if got, _ := s.Folder(f.ID); got.Expanded {
		t.Fatalf("toggle should collapse")
	}
	s.DeleteFolder(f.ID)
	if _, ok := s.Request(r.ID); !ok {
		t.Fatalf("deleting a folder must keep its requests")
	}
	if un := s.Unorganized(); len(un) != 1 || un[0] != r.ID {
		t.Fatalf("expected request to be unorganized, got %v", un)
	}
}

func TestDuplicateRequest(t *testing.T) {
	s := newTestStore(t)
	src := s.CreateRequest("orig")
	s.SetURL("http://h")
	s.RecordResponse(src.ID, request.NewSuccessItem("r1", time.Now(), &request.HTTPResponse{Status: 200}))

	cp, ok := s.DuplicateRequest(src.ID)
	if !ok || cp.Name != "orig Copy" || cp.Request.URL != "http://h" {
		t.Fatalf("unexpected duplicate %+v", cp)
	}
	if len(cp.Responses) != 0 || cp.SelectedResponseID != "" {
		t.Fatalf("duplicate must not carry history")
	}
	if cp.Request.Headers[0].ID == src.Request.Headers[0].ID {
		t.Fatalf("duplicate rows need fresh ids")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")
	f, _ := s.CreateFolder("F")
	s.AddRequestToFolder(r.ID, f.ID)

	snap := s.Snapshot()
	snap.Folders = append(snap.Folders, request.Folder{ID: "dup", Name: "Dup", Requests: []string{r.ID, "ghost"}})

	restored := New(&snap)
	if restored.ActiveRequestID() != r.ID {
		t.Fatalf("active pointer lost")
	}
	dup, _ := restored.Folder("dup")
	if len(dup.Requests) != 0 {
		t.Fatalf("restore must drop duplicate memberships and unknown ids, got %v", dup.Requests)
	}
}
