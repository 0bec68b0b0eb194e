package request

import "strings"

// AuthType names the scheme that governs the derived auth header.
type AuthType string

const (
	AuthNone    AuthType = "none"
	AuthInherit AuthType = "inherit"
	AuthBasic   AuthType = "basic"
	AuthBearer  AuthType = "bearer"
	AuthAPIKey  AuthType = "apikey"
	AuthOAuth2  AuthType = "oauth2"
	AuthCustom  AuthType = "custom"
)

// Valid reports whether t is a known scheme.
func (t AuthType) Valid() bool {
	switch t {
	case AuthNone, AuthInherit, AuthBasic, AuthBearer, AuthAPIKey, AuthOAuth2, AuthCustom:
		return true
	}
	return false
}

const (
	DefaultTokenType      = "Bearer"
	DefaultAPIKeyName     = "X-API-Key"
	APIKeyInHeader        = "header"
	APIKeyInQuery         = "query"
	AuthorizationHeader   = "Authorization"
	defaultAPIKeyLocation = APIKeyInHeader
)

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BearerAuth struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

type APIKeyAuth struct {
	Key      string `json:"apiKey"`
	Name     string `json:"apiKeyName"`
	Location string `json:"apiKeyLocation"`
}

type OAuth2Auth struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	AuthURL      string `json:"authUrl,omitempty"`
	TokenURL     string `json:"tokenUrl,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
}

type CustomAuth struct {
	Key   string `json:"customKey"`
	Value string `json:"customValue"`
}

// Auth is a tagged union keyed by Type. Only the variant matching Type is
// consulted when deriving headers; the others keep what the user typed so
// switching schemes back and forth does not lose input.
type Auth struct {
	Type   AuthType    `json:"type"`
	Basic  *BasicAuth  `json:"basic,omitempty"`
	Bearer *BearerAuth `json:"bearer,omitempty"`
	APIKey *APIKeyAuth `json:"apikey,omitempty"`
	OAuth2 *OAuth2Auth `json:"oauth2,omitempty"`
	Custom *CustomAuth `json:"custom,omitempty"`
	// HeaderKey names the header the auth sync last wrote, so a renamed
	// api key or custom header can still be removed.
	HeaderKey string `json:"headerKey,omitempty"`
}

// NewAuth returns the default auth: inherit, no credentials.
func NewAuth() Auth {
	return Auth{Type: AuthInherit}
}

func NewBearerAuth() *BearerAuth { return &BearerAuth{TokenType: DefaultTokenType} }

func NewAPIKeyAuth() *APIKeyAuth {
	return &APIKeyAuth{Name: DefaultAPIKeyName, Location: defaultAPIKeyLocation}
}

func NewOAuth2Auth() *OAuth2Auth { return &OAuth2Auth{TokenType: DefaultTokenType} }

// Clone returns a deep copy.
func (a Auth) Clone() Auth {
	out := Auth{Type: a.Type, HeaderKey: a.HeaderKey}
	if a.Basic != nil {
		v := *a.Basic
		out.Basic = &v
	}
	if a.Bearer != nil {
		v := *a.Bearer
		out.Bearer = &v
	}
	if a.APIKey != nil {
		v := *a.APIKey
		out.APIKey = &v
	}
	if a.OAuth2 != nil {
		v := *a.OAuth2
		out.OAuth2 = &v
	}
	if a.Custom != nil {
		v := *a.Custom
		out.Custom = &v
	}
	return out
}

// Ensure allocates the variant for the current type if missing.
func (a *Auth) Ensure() {
	switch a.Type {
	case AuthBasic:
		if a.Basic == nil {
			a.Basic = &BasicAuth{}
		}
	case AuthBearer:
		if a.Bearer == nil {
			a.Bearer = NewBearerAuth()
		}
	case AuthAPIKey:
		if a.APIKey == nil {
			a.APIKey = NewAPIKeyAuth()
		}
	case AuthOAuth2:
		if a.OAuth2 == nil {
			a.OAuth2 = NewOAuth2Auth()
		}
	case AuthCustom:
		if a.Custom == nil {
			a.Custom = &CustomAuth{}
		}
	}
}

// Set writes a credential field by its wire name. tokenType, username and
// password are shared between variants and go to the active one. It
// reports false for unknown fields or fields the active scheme lacks.
func (a *Auth) Set(field, value string) bool {
	switch field {
	case "username", "password":
		switch a.Type {
		case AuthOAuth2:
			a.Ensure()
			if field == "username" {
				a.OAuth2.Username = value
			} else {
				a.OAuth2.Password = value
			}
			return true
		default:
			if a.Basic == nil {
				a.Basic = &BasicAuth{}
			}
			if field == "username" {
				a.Basic.Username = value
			} else {
				a.Basic.Password = value
			}
			return true
		}
	case "token":
		if a.Bearer == nil {
			a.Bearer = NewBearerAuth()
		}
		a.Bearer.Token = value
		return true
	case "tokenType":
		switch a.Type {
		case AuthOAuth2:
			a.Ensure()
			a.OAuth2.TokenType = value
		case AuthBearer:
			a.Ensure()
			a.Bearer.TokenType = value
		default:
			return false
		}
		return true
	case "apiKey", "apiKeyName", "apiKeyLocation":
		if a.APIKey == nil {
			a.APIKey = NewAPIKeyAuth()
		}
		switch field {
		case "apiKey":
			a.APIKey.Key = value
		case "apiKeyName":
			a.APIKey.Name = value
		default:
			a.APIKey.Location = strings.ToLower(strings.TrimSpace(value))
		}
		return true
	case "accessToken", "authUrl", "tokenUrl", "clientId", "clientSecret", "scope":
		if a.OAuth2 == nil {
			a.OAuth2 = NewOAuth2Auth()
		}
		o := a.OAuth2
		switch field {
		case "accessToken":
			o.AccessToken = value
		case "authUrl":
			o.AuthURL = value
		case "tokenUrl":
			o.TokenURL = value
		case "clientId":
			o.ClientID = value
		case "clientSecret":
			o.ClientSecret = value
		case "scope":
			o.Scope = value
		}
		return true
	case "customKey", "customValue":
		if a.Custom == nil {
			a.Custom = &CustomAuth{}
		}
		if field == "customKey" {
			a.Custom.Key = value
		} else {
			a.Custom.Value = value
		}
		return true
	}
	return false
}
