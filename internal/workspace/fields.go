package workspace

import (
	"strings"

	"github.com/funnyzak/reqkit/internal/derive"
	"github.com/funnyzak/reqkit/pkg/request"
)

// SetMethod sets the HTTP method, upper-cased. Custom methods are allowed.
func (s *Store) SetMethod(method string) (request.RequestItem, bool) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.Method = method
		return true
	})
}

// SetURL stores the URL as typed. Its query is not parsed into params.
func (s *Store) SetURL(url string) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.URL = url
		return true
	})
}

func (s *Store) SetBody(body string) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.Body = body
		return true
	})
}

func (s *Store) SetBodyType(t request.BodyType) (request.RequestItem, bool) {
	switch t {
	case request.BodyNone, request.BodyText, request.BodyForm, request.BodyBinary, request.BodyGraphQL:
	default:
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.BodyType = t
		return true
	})
}

func (s *Store) SetTextSubtype(t request.TextSubtype) (request.RequestItem, bool) {
	switch t {
	case request.TextRaw, request.TextJSON, request.TextXML, request.TextYAML:
	default:
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.TextSubtype = t
		return true
	})
}

func (s *Store) SetFormSubtype(t request.FormSubtype) (request.RequestItem, bool) {
	if t != request.FormURLEncoded && t != request.FormMultipart {
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.FormSubtype = t
		return true
	})
}

// SetBinaryFile attaches a file for binary bodies; nil detaches it.
func (s *Store) SetBinaryFile(f *request.BinaryFile) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		if f == nil {
			r.BinaryFile = nil
			return true
		}
		cp := *f
		cp.Data = append([]byte(nil), f.Data...)
		r.BinaryFile = &cp
		return true
	})
}

// SetTimeout sets the per-request timeout in milliseconds. Non-positive
// values restore the default.
func (s *Store) SetTimeout(ms int64) (request.RequestItem, bool) {
	if ms <= 0 {
		ms = request.DefaultTimeoutMs
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.Timeout = ms
		return true
	})
}

func (s *Store) SetActiveRequestTab(tab string) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.ActiveRequestTab = tab
		return true
	})
}

func (s *Store) SetActiveResponseTab(tab string) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.ActiveResponseTab = tab
		return true
	})
}

// SetAuthType switches the scheme and recomputes auth headers.
func (s *Store) SetAuthType(t request.AuthType) (request.RequestItem, bool) {
	if !t.Valid() {
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		r.Auth.Type = t
		r.Auth.Ensure()
		*r = derive.SyncAuthHeaders(*r)
		return true
	})
}

// UpdateCredential writes one credential field and recomputes auth headers.
func (s *Store) UpdateCredential(field, value string) (request.RequestItem, bool) {
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		if !r.Auth.Set(field, value) {
			return false
		}
		*r = derive.SyncAuthHeaders(*r)
		return true
	})
}

// SetAuth replaces the whole auth value and recomputes auth headers.
func (s *Store) SetAuth(a request.Auth) (request.RequestItem, bool) {
	if !a.Type.Valid() {
		return request.RequestItem{}, false
	}
	return s.mutateActive(func(r *request.HTTPRequest) bool {
		written := r.Auth.HeaderKey
		r.Auth = a.Clone()
		r.Auth.HeaderKey = written
		r.Auth.Ensure()
		*r = derive.SyncAuthHeaders(*r)
		return true
	})
}

// SetOAuth2TokenFor stores a fetched token on request id. Only the token
// fields change, so credential edits made while the token was in flight
// are kept. It reports false when id is unknown or no longer uses oauth2.
func (s *Store) SetOAuth2TokenFor(id, accessToken, tokenType string) bool {
	s.mu.Lock()
	_, ok := s.mutateAt(s.indexOf(id), func(r *request.HTTPRequest) bool {
		if r.Auth.Type != request.AuthOAuth2 || r.Auth.OAuth2 == nil {
			return false
		}
		r.Auth.OAuth2.AccessToken = accessToken
		r.Auth.OAuth2.TokenType = tokenType
		*r = derive.SyncAuthHeaders(*r)
		return true
	})
	return ok
}
