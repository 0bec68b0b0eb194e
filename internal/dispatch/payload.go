package dispatch

import (
	"encoding/base64"
	"strings"

	"github.com/funnyzak/reqkit/internal/derive"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/pkg/request"
)

// BuildPayload resolves req against r and assembles the wire payload.
// Only enabled headers with a non-blank key are sent. An api key that lives
// in the query is appended to the resolved URL.
func BuildPayload(req request.HTTPRequest, r *vars.Resolver) *request.Payload {
	p := &request.Payload{
		Method:      strings.ToUpper(strings.TrimSpace(req.Method)),
		URL:         r.Resolve(strings.TrimSpace(req.URL)),
		Headers:     make(map[string]string),
		BodyType:    req.BodyType,
		TextSubtype: req.TextSubtype,
		FormSubtype: req.FormSubtype,
		Timeout:     req.Timeout,
	}
	if p.Method == "" {
		p.Method = request.DefaultMethod
	}

	for _, h := range req.Headers {
		if !h.Enabled || strings.TrimSpace(h.Key) == "" {
			continue
		}
		p.Headers[r.Resolve(strings.TrimSpace(h.Key))] = r.Resolve(h.Value)
	}

	if key, value, ok := derive.AuthQueryParam(req.Auth); ok {
		p.URL = derive.AppendQuery(p.URL, r.Resolve(key), r.Resolve(value))
	}

	if req.BodyType != "" && req.BodyType != request.BodyNone {
		body := r.Resolve(req.Body)
		p.Body = &body
	}
	if req.BodyType == request.BodyBinary && req.BinaryFile != nil {
		data := base64.StdEncoding.EncodeToString(req.BinaryFile.Data)
		p.BinaryData = &data
	}
	return p
}
