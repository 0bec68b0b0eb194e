// Package authflow obtains OAuth2 access tokens for requests that use the
// oauth2 scheme and stores them back into the request's credentials.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

// DefaultTimeout bounds token requests made without an explicit client.
const DefaultTimeout = 30 * time.Second

var (
	ErrNotOAuth2       = errors.New("request does not use oauth2 auth")
	ErrMissingTokenURL = errors.New("oauth2 token url is required")
)

// Fetcher exchanges client credentials or a username/password pair for an
// access token.
type Fetcher struct {
	client *http.Client
	logger logger.Logger
}

// New creates a Fetcher. A nil client is replaced by one limited to
// DefaultTimeout.
func New(client *http.Client, log logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{client: client, logger: log}
}

// Token runs the grant selected by cfg: the password grant when a username
// is present, client credentials otherwise.
func (f *Fetcher) Token(ctx context.Context, cfg request.OAuth2Auth) (*oauth2.Token, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, ErrMissingTokenURL
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	scopes := strings.Fields(cfg.Scope)

	var (
		tok   *oauth2.Token
		err   error
		grant string
	)
	if cfg.Username != "" {
		grant = "password"
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			Scopes:       scopes,
		}
		tok, err = conf.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
	} else {
		grant = "client_credentials"
		conf := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
		}
		tok, err = conf.Token(ctx)
	}
	if err != nil {
		f.logger.Warn("OAuth2 token request failed", "grant", grant, "token_url", cfg.TokenURL, "error", err)
		return nil, fmt.Errorf("fetch %s token: %w", grant, err)
	}
	f.logger.Debug("OAuth2 token acquired", "grant", grant, "token_type", tok.Type())
	return tok, nil
}

// Refresh fetches a token for the stored request and writes accessToken and
// tokenType into its current oauth2 credentials, which recomputes the auth
// header. Other credential fields are left as they are at write time.
// Credential fields are resolved through r when it is non-nil.
func (f *Fetcher) Refresh(ctx context.Context, store *workspace.Store, requestID string, r *vars.Resolver) (request.Auth, error) {
	item, ok := store.Request(requestID)
	if !ok {
		return request.Auth{}, workspace.ErrRequestNotFound
	}
	auth := item.Request.Auth.Clone()
	if auth.Type != request.AuthOAuth2 || auth.OAuth2 == nil {
		return request.Auth{}, ErrNotOAuth2
	}

	cfg := *auth.OAuth2
	if r != nil {
		cfg.AuthURL = r.Resolve(cfg.AuthURL)
		cfg.TokenURL = r.Resolve(cfg.TokenURL)
		cfg.ClientID = r.Resolve(cfg.ClientID)
		cfg.ClientSecret = r.Resolve(cfg.ClientSecret)
		cfg.Scope = r.Resolve(cfg.Scope)
		cfg.Username = r.Resolve(cfg.Username)
		cfg.Password = r.Resolve(cfg.Password)
	}

	tok, err := f.Token(ctx, cfg)
	if err != nil {
		return request.Auth{}, err
	}
	if !store.SetOAuth2TokenFor(requestID, tok.AccessToken, tok.Type()) {
		if _, ok := store.Request(requestID); !ok {
			return request.Auth{}, workspace.ErrRequestNotFound
		}
		return request.Auth{}, ErrNotOAuth2
	}
	item, ok = store.Request(requestID)
	if !ok {
		return request.Auth{}, workspace.ErrRequestNotFound
	}
	return item.Request.Auth, nil
}
