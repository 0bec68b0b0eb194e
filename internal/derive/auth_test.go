package derive

import (
	"strings"
	"testing"

	"github.com/funnyzak/reqkit/pkg/request"
)

func headerValue(rows []request.KeyValue, key string) (string, int) {
	value, count := "", 0
	for _, r := range rows {
		if strings.EqualFold(r.Key, key) {
			value = r.Value
			count++
		}
	}
	return value, count
}

func TestAuthHeaderSchemes(t *testing.T) {
	tests := []struct {
		name      string
		auth      request.Auth
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{"basic", request.Auth{Type: request.AuthBasic, Basic: &request.BasicAuth{Username: "user", Password: "pass"}}, "Authorization", "Basic dXNlcjpwYXNz", true},
		{"basic missing password", request.Auth{Type: request.AuthBasic, Basic: &request.BasicAuth{Username: "user"}}, "", "", false},
		{"bearer", request.Auth{Type: request.AuthBearer, Bearer: &request.BearerAuth{Token: "t", TokenType: "Bearer"}}, "Authorization", "Bearer t", true},
		{"bearer blank type", request.Auth{Type: request.AuthBearer, Bearer: &request.BearerAuth{Token: "t"}}, "Authorization", "Bearer t", true},
		{"apikey header", request.Auth{Type: request.AuthAPIKey, APIKey: &request.APIKeyAuth{Key: "k", Name: "X-Key", Location: "header"}}, "X-Key", "k", true},
		{"apikey query", request.Auth{Type: request.AuthAPIKey, APIKey: &request.APIKeyAuth{Key: "k", Name: "X-Key", Location: "query"}}, "", "", false},
		{"oauth2", request.Auth{Type: request.AuthOAuth2, OAuth2: &request.OAuth2Auth{AccessToken: "a", TokenType: "Bearer"}}, "Authorization", "Bearer a", true},
		{"custom", request.Auth{Type: request.AuthCustom, Custom: &request.CustomAuth{Key: "X-Sig", Value: "s"}}, "X-Sig", "s", true},
		{"none", request.Auth{Type: request.AuthNone, Bearer: &request.BearerAuth{Token: "t"}}, "", "", false},
		{"inherit", request.Auth{Type: request.AuthInherit}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, v, ok := AuthHeader(tt.auth)
			if ok != tt.wantOK || k != tt.wantKey || v != tt.wantValue {
				t.Fatalf("AuthHeader = (%q, %q, %v), want (%q, %q, %v)", k, v, ok, tt.wantKey, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestSyncAuthHeadersSchemeSwitch(t *testing.T) {
	req := request.NewHTTPRequest()
	req.Headers = []request.KeyValue{row("Accept", "*/*", true), row("", "", false)}
	req.Auth = request.Auth{Type: request.AuthBearer, Bearer: &request.BearerAuth{Token: "tok", TokenType: "Bearer"}}

	req = SyncAuthHeaders(req)
	if v, n := headerValue(req.Headers, "Authorization"); n != 1 || v != "Bearer tok" {
		t.Fatalf("expected one bearer header, got %q x%d", v, n)
	}
	if req.Headers[1].Key != "Authorization" {
		t.Fatalf("auth header must be the last non-blank row: %+v", req.Headers)
	}
	assertTrailingBlank(t, req.Headers)

	req.Auth.Type = request.AuthAPIKey
	req.Auth.Ensure()
	req.Auth.APIKey.Key = "secret"
	req = SyncAuthHeaders(req)
	if _, n := headerValue(req.Headers, "Authorization"); n != 0 {
		t.Fatalf("stale Authorization header left after switching to apikey")
	}
	if v, n := headerValue(req.Headers, "X-API-Key"); n != 1 || v != "secret" {
		t.Fatalf("expected api key header, got %q x%d", v, n)
	}

	req.Auth.Type = request.AuthNone
	req = SyncAuthHeaders(req)
	if _, n := headerValue(req.Headers, "X-API-Key"); n != 0 {
		t.Fatalf("api key header must be removed for none")
	}
	if _, n := headerValue(req.Headers, "Accept"); n != 1 {
		t.Fatalf("user header must survive")
	}
	assertTrailingBlank(t, req.Headers)
}

func TestSyncAuthHeadersRemovesCurrentCustomKey(t *testing.T) {
	req := request.NewHTTPRequest()
	req.Auth = request.Auth{Type: request.AuthCustom, Custom: &request.CustomAuth{Key: "X-Sig", Value: "1"}}
	req = SyncAuthHeaders(req)
	req.Auth.Custom.Value = "2"
	req = SyncAuthHeaders(req)

	if v, n := headerValue(req.Headers, "x-sig"); n != 1 || v != "2" {
		t.Fatalf("expected single refreshed custom header, got %q x%d", v, n)
	}
}

func TestAuthQueryParam(t *testing.T) {
	a := request.Auth{Type: request.AuthAPIKey, APIKey: &request.APIKeyAuth{Key: "k", Name: "api_key", Location: "query"}}
	k, v, ok := AuthQueryParam(a)
	if !ok || k != "api_key" || v != "k" {
		t.Fatalf("unexpected query param: %q %q %v", k, v, ok)
	}
	a.APIKey.Location = "header"
	if _, _, ok := AuthQueryParam(a); ok {
		t.Fatalf("header location must not produce a query param")
	}
}
