package derive

import (
	"encoding/base64"
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

// AuthHeader computes the header the active scheme contributes, if any.
func AuthHeader(a request.Auth) (key, value string, ok bool) {
	switch a.Type {
	case request.AuthBasic:
		if a.Basic == nil || a.Basic.Username == "" || a.Basic.Password == "" {
			return "", "", false
		}
		enc := base64.StdEncoding.EncodeToString([]byte(a.Basic.Username + ":" + a.Basic.Password))
		return request.AuthorizationHeader, "Basic " + enc, true
	case request.AuthBearer:
		if a.Bearer == nil || a.Bearer.Token == "" {
			return "", "", false
		}
		return request.AuthorizationHeader, tokenType(a.Bearer.TokenType) + " " + a.Bearer.Token, true
	case request.AuthAPIKey:
		k := a.APIKey
		if k == nil || k.Key == "" || strings.TrimSpace(k.Name) == "" || !strings.EqualFold(k.Location, request.APIKeyInHeader) {
			return "", "", false
		}
		return strings.TrimSpace(k.Name), k.Key, true
	case request.AuthOAuth2:
		if a.OAuth2 == nil || a.OAuth2.AccessToken == "" {
			return "", "", false
		}
		return request.AuthorizationHeader, tokenType(a.OAuth2.TokenType) + " " + a.OAuth2.AccessToken, true
	case request.AuthCustom:
		c := a.Custom
		if c == nil || strings.TrimSpace(c.Key) == "" || c.Value == "" {
			return "", "", false
		}
		return strings.TrimSpace(c.Key), c.Value, true
	}
	return "", "", false
}

// AuthQueryParam returns the pair an apikey scheme places in the query.
func AuthQueryParam(a request.Auth) (key, value string, ok bool) {
	if a.Type != request.AuthAPIKey || a.APIKey == nil {
		return "", "", false
	}
	k := a.APIKey
	if k.Key == "" || strings.TrimSpace(k.Name) == "" || !strings.EqualFold(k.Location, request.APIKeyInQuery) {
		return "", "", false
	}
	return strings.TrimSpace(k.Name), k.Key, true
}

// IsAuthHeader reports whether key names a header owned by auth: the
// Authorization and X-API-Key headers, or the current api key and custom
// header names.
func IsAuthHeader(a request.Auth, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	names := []string{request.AuthorizationHeader, request.DefaultAPIKeyName}
	if a.APIKey != nil {
		names = append(names, a.APIKey.Name)
	}
	if a.Custom != nil {
		names = append(names, a.Custom.Key)
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && strings.EqualFold(n, key) {
			return true
		}
	}
	return false
}

// SyncAuthHeaders drops every auth-owned header, including the one written
// by the previous sync, and appends the one the active scheme produces as
// the last non-blank row. Auth.HeaderKey records what was written.
func SyncAuthHeaders(req request.HTTPRequest) request.HTTPRequest {
	previous := strings.TrimSpace(req.Auth.HeaderKey)
	kept := make([]request.KeyValue, 0, len(req.Headers)+1)
	for _, h := range req.Headers {
		if IsAuthHeader(req.Auth, h.Key) || (previous != "" && strings.EqualFold(strings.TrimSpace(h.Key), previous)) {
			continue
		}
		kept = append(kept, h)
	}
	req.Auth.HeaderKey = ""
	if key, value, ok := AuthHeader(req.Auth); ok {
		row := request.NewRow("header")
		row.Key, row.Value, row.Enabled = key, value, true
		kept = InsertBeforeTrailing(kept, row)
		req.Auth.HeaderKey = key
	}
	req.Headers = NormalizeRows(kept, "header")
	return req
}

func tokenType(t string) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return request.DefaultTokenType
}
