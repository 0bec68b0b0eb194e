package dispatch

import (
	"encoding/base64"
	"testing"

	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/pkg/request"
)

func TestBuildPayload(t *testing.T) {
	resolver := vars.NewResolver([]request.KeyValue{
		{ID: "1", Key: "base", Value: "https://api.example.com", Enabled: true},
		{ID: "2", Key: "key", Value: "k-123", Enabled: true},
	}, nil)

	req := request.NewHTTPRequest()
	req.Method = "post"
	req.URL = " {{base}}/items?page=1 "
	req.Headers = []request.KeyValue{
		{ID: "h1", Key: "X-Trace", Value: "{{key}}", Enabled: true},
		{ID: "h2", Key: "X-Off", Value: "x", Enabled: false},
		{ID: "h3", Key: "  ", Value: "orphan", Enabled: true},
		{ID: "h4", Key: "X-Empty", Value: "", Enabled: true},
	}
	req.Auth = request.Auth{Type: request.AuthAPIKey, APIKey: &request.APIKeyAuth{
		Key: "{{key}}", Name: "api_key", Location: request.APIKeyInQuery,
	}}
	req.BodyType = request.BodyText
	req.TextSubtype = request.TextJSON
	req.Body = `{"k":"{{key}}"}`
	req.Timeout = 1500

	p := BuildPayload(req, resolver)

	if p.Method != "POST" {
		t.Fatalf("method not upper-cased: %s", p.Method)
	}
	if p.URL != "https://api.example.com/items?page=1&api_key=k-123" {
		t.Fatalf("unexpected URL %q", p.URL)
	}
	if len(p.Headers) != 2 || p.Headers["X-Trace"] != "k-123" || p.Headers["X-Empty"] != "" {
		t.Fatalf("unexpected headers %v", p.Headers)
	}
	if p.Body == nil || *p.Body != `{"k":"k-123"}` {
		t.Fatalf("unexpected body %v", p.Body)
	}
	if p.TextSubtype != request.TextJSON || p.Timeout != 1500 {
		t.Fatalf("passthrough fields lost: %+v", p)
	}
	if p.BinaryData != nil {
		t.Fatalf("binary data set for text body")
	}
}

func TestBuildPayloadBodyTypes(t *testing.T) {
	resolver := vars.NewResolver(nil, nil)

	req := request.NewHTTPRequest()
	req.URL = "https://example.com"
	req.Body = "ignored"
	if p := BuildPayload(req, resolver); p.Body != nil {
		t.Fatalf("body sent with bodyType none")
	}

	req.BodyType = request.BodyBinary
	req.BinaryFile = &request.BinaryFile{Name: "a.bin", Data: []byte{0x00, 0x01, 0xff}}
	p := BuildPayload(req, resolver)
	if p.BinaryData == nil {
		t.Fatalf("binary data missing")
	}
	raw, err := base64.StdEncoding.DecodeString(*p.BinaryData)
	if err != nil || len(raw) != 3 || raw[2] != 0xff {
		t.Fatalf("binary data not round-tripped: %v %v", raw, err)
	}
}

func TestBuildPayloadHeaderAPIKeyStaysOutOfURL(t *testing.T) {
	req := request.NewHTTPRequest()
	req.URL = "https://example.com/x#frag"
	req.Auth = request.Auth{Type: request.AuthAPIKey, APIKey: &request.APIKeyAuth{
		Key: "abc", Name: "X-API-Key", Location: request.APIKeyInHeader,
	}}
	p := BuildPayload(req, vars.NewResolver(nil, nil))
	if p.URL != "https://example.com/x#frag" {
		t.Fatalf("header api key leaked into URL: %s", p.URL)
	}

	req.Auth.APIKey.Location = request.APIKeyInQuery
	p = BuildPayload(req, vars.NewResolver(nil, nil))
	if p.URL != "https://example.com/x?X-API-Key=abc#frag" {
		t.Fatalf("query api key misplaced: %s", p.URL)
	}
}
