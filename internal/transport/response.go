package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/funnyzak/reqkit/pkg/request"
)

func normalizeResponse(resp *http.Response, raw []byte, elapsed time.Duration) *request.HTTPResponse {
	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	statusText := http.StatusText(resp.StatusCode)
	if statusText == "" {
		statusText = "Unknown"
	}
	body := string(raw)
	return &request.HTTPResponse{
		Status:       resp.StatusCode,
		StatusText:   statusText,
		Headers:      headers,
		Body:         body,
		BodyPretty:   PrettyJSON(body),
		ResponseTime: elapsed.Milliseconds(),
	}
}

// PrettyJSON indents body when it is valid JSON and returns it unchanged
// otherwise.
func PrettyJSON(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return body
	}
	return buf.String()
}
