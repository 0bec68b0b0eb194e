package derive

import (
	"testing"

	"github.com/funnyzak/reqkit/pkg/request"
)

func TestURLWithParamsRoundTrip(t *testing.T) {
	base := "https://api.example.com/x"
	a := row("a", "1", true)
	b := row("b", "2", true)
	params := []request.KeyValue{a, b, row("", "", false)}

	if got := URLWithParams(base, params); got != base+"?a=1&b=2" {
		t.Fatalf("unexpected url: %s", got)
	}

	params[1].Enabled = false
	if got := URLWithParams(base+"?a=1&b=2", params); got != base+"?a=1" {
		t.Fatalf("unexpected url after disabling b: %s", got)
	}

	params[0].Enabled = false
	if got := URLWithParams(base+"?a=1", params); got != base {
		t.Fatalf("expected bare base, got %s", got)
	}
}

func TestURLWithParamsSkipsIncomplete(t *testing.T) {
	params := []request.KeyValue{row("a", "", true), row(" ", "v", true), row("c", "3", true)}
	if got := URLWithParams("http://h/p?old=1", params); got != "http://h/p?c=3" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestSyncURLIgnoresHandEditedQuery(t *testing.T) {
	req := request.NewHTTPRequest()
	req.URL = "http://h/p?manual=1"
	req = SyncURL(req)
	if req.URL != "http://h/p" {
		t.Fatalf("expected query rebuilt from params only, got %s", req.URL)
	}
	if len(req.Params) != 1 {
		t.Fatalf("params must not be populated from url, got %+v", req.Params)
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := map[string]string{
		"a b":            "a%20b",
		"x&y=z":          "x%26y%3Dz",
		"keep-_.!~*'()":  "keep-_.!~*'()",
		"é":              "%C3%A9",
		"{{token}}":      "{{token}}",
		"pre {{ t }}/x":  "pre%20{{ t }}%2Fx",
	}
	for in, want := range tests {
		if got := EncodeComponent(in); got != want {
			t.Errorf("EncodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppendQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://h/p", "http://h/p?k=v%201"},
		{"http://h/p?a=1", "http://h/p?a=1&k=v%201"},
		{"http://h/p?", "http://h/p?k=v%201"},
		{"http://h/p#frag", "http://h/p?k=v%201#frag"},
	}
	for _, tt := range tests {
		if got := AppendQuery(tt.in, "k", "v 1"); got != tt.want {
			t.Errorf("AppendQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
