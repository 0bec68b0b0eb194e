// Package codegen renders a request as a client snippet in one of several
// languages.
package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/pkg/request"
)

// NoURL is printed by every template when the request has no URL.
const NoURL = "NO URL AVAILABLE"

var ErrUnknownTemplate = errors.New("unknown code template")

// Template generates code for one language.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`

	noURL    string
	generate func(req request.HTTPRequest, headers headerList) string
}

// Generate renders req.
func (t Template) Generate(req request.HTTPRequest) string {
	if strings.TrimSpace(req.URL) == "" {
		return t.noURL
	}
	return t.generate(req, buildHeaders(req))
}

// Templates lists every template in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Lookup finds a template by id.
func Lookup(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Generate renders req with the template named id.
func Generate(id string, req request.HTTPRequest) (string, error) {
	t, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	return t.Generate(req), nil
}

// Resolve substitutes variables in the URL, the headers and the body, so a
// snippet can be generated with concrete values.
func Resolve(req request.HTTPRequest, r *vars.Resolver) request.HTTPRequest {
	out := req.Clone()
	out.URL = r.Resolve(out.URL)
	for i := range out.Headers {
		out.Headers[i].Key = r.Resolve(out.Headers[i].Key)
		out.Headers[i].Value = r.Resolve(out.Headers[i].Value)
	}
	out.Body = r.Resolve(out.Body)
	return out
}

type header struct {
	key, value string
}

// headerList keeps insertion order. Setting an existing key replaces its
// value in place.
type headerList []header

func (h *headerList) set(key, value string) {
	for i := range *h {
		if (*h)[i].key == key {
			(*h)[i].value = value
			return
		}
	}
	*h = append(*h, header{key: key, value: value})
}

func (h headerList) has(key string) bool {
	for _, kv := range h {
		if kv.key == key {
			return true
		}
	}
	return false
}

func hasBody(req request.HTTPRequest) bool {
	return req.Body != "" && req.BodyType != request.BodyNone
}

func buildHeaders(req request.HTTPRequest) headerList {
	var headers headerList
	for _, h := range req.Headers {
		if h.Enabled && strings.TrimSpace(h.Key) != "" && strings.TrimSpace(h.Value) != "" {
			headers.set(h.Key, h.Value)
		}
	}

	if hasBody(req) && !headers.has("Content-Type") {
		switch req.BodyType {
		case request.BodyText:
			switch req.TextSubtype {
			case request.TextJSON:
				headers.set("Content-Type", "application/json")
			case request.TextXML:
				headers.set("Content-Type", "application/xml")
			default:
				headers.set("Content-Type", "text/plain")
			}
		case request.BodyForm:
			if req.FormSubtype == request.FormURLEncoded {
				headers.set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				headers.set("Content-Type", "multipart/form-data")
			}
		}
	}
	return headers
}

func escapeShell(s string) string {
	return strings.ReplaceAll(s, "'", `'"'"'`)
}

// escapeJSON returns s as the inside of a JSON string literal.
func escapeJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return s
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	return out[1 : len(out)-1]
}

// jsonObject renders headers as a two-space indented JSON object.
func jsonObject(headers headerList) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, h := range headers {
		fmt.Fprintf(&b, "  \"%s\": \"%s\"", escapeJSON(h.key), escapeJSON(h.value))
		if i < len(headers)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// titleMethod turns GET into Get.
func titleMethod(method string) string {
	if method == "" {
		return ""
	}
	return method[:1] + strings.ToLower(method[1:])
}
