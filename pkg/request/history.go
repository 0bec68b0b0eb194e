package request

import (
	"errors"
	"net/http"
	"time"
)

// DefaultErrorStatus is recorded for failures that carry no status code.
const DefaultErrorStatus = http.StatusNotFound

// HTTPResponse is the normalized transport result.
type HTTPResponse struct {
	Status       int               `json:"status"`
	StatusText   string            `json:"status_text"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	BodyPretty   string            `json:"body_pretty"`
	ResponseTime int64             `json:"response_time"`
}

// HTTPError is a normalized transport failure.
type HTTPError struct {
	Message string `json:"error"`
	Status  int    `json:"status,omitempty"`
}

func (e *HTTPError) Error() string { return e.Message }

// NormalizeError converts any error into an HTTPError with a status,
// defaulting to DefaultErrorStatus.
func NormalizeError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var he *HTTPError
	if errors.As(err, &he) {
		out := *he
		if out.Status == 0 {
			out.Status = DefaultErrorStatus
		}
		return &out
	}
	return &HTTPError{Message: err.Error(), Status: DefaultErrorStatus}
}

// ResponseHistoryItem is one recorded send outcome. Exactly one of Response
// and Error is set.
type ResponseHistoryItem struct {
	ID        string        `json:"id"`
	Timestamp int64         `json:"timestamp"`
	Response  *HTTPResponse `json:"response,omitempty"`
	Error     *HTTPError    `json:"error,omitempty"`
}

// NewSuccessItem wraps a response. A nil response is recorded as a failure.
func NewSuccessItem(id string, at time.Time, resp *HTTPResponse) ResponseHistoryItem {
	if resp == nil {
		return NewErrorItem(id, at, errors.New("empty response"))
	}
	return ResponseHistoryItem{ID: id, Timestamp: at.UnixMilli(), Response: resp}
}

// NewErrorItem wraps a normalized error.
func NewErrorItem(id string, at time.Time, err error) ResponseHistoryItem {
	if err == nil {
		err = errors.New("unknown error")
	}
	return ResponseHistoryItem{ID: id, Timestamp: at.UnixMilli(), Error: NormalizeError(err)}
}

// Valid reports whether exactly one of Response and Error is set.
func (h ResponseHistoryItem) Valid() bool {
	return (h.Response == nil) != (h.Error == nil)
}

// Status returns the HTTP status of either outcome.
func (h ResponseHistoryItem) Status() int {
	switch {
	case h.Response != nil:
		return h.Response.Status
	case h.Error != nil:
		return h.Error.Status
	}
	return 0
}

// Clone returns a deep copy.
func (h ResponseHistoryItem) Clone() ResponseHistoryItem {
	out := h
	if h.Response != nil {
		r := *h.Response
		if h.Response.Headers != nil {
			r.Headers = make(map[string]string, len(h.Response.Headers))
			for k, v := range h.Response.Headers {
				r.Headers[k] = v
			}
		}
		out.Response = &r
	}
	if h.Error != nil {
		e := *h.Error
		out.Error = &e
	}
	return out
}

// ShownResponse resolves the entry to display: the selected one, else the
// newest.
func (it RequestItem) ShownResponse() (ResponseHistoryItem, bool) {
	if it.SelectedResponseID != "" {
		for _, r := range it.Responses {
			if r.ID == it.SelectedResponseID {
				return r, true
			}
		}
	}
	if len(it.Responses) > 0 {
		return it.Responses[0], true
	}
	return ResponseHistoryItem{}, false
}

// FindResponse returns the entry with id.
func (it RequestItem) FindResponse(id string) (ResponseHistoryItem, bool) {
	for _, r := range it.Responses {
		if r.ID == id {
			return r, true
		}
	}
	return ResponseHistoryItem{}, false
}
