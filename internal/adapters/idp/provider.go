// Package idp provides the OIDC-backed identity provider used for the
// primary sign-in path.
package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buswatch/buswatch-api/internal/ports"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Provider implements ports.IdentityProvider against an OIDC identity
// service using the resource owner password grant.
type Provider struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	RevokeURL    string       // optional token revocation endpoint
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewProvider creates a new identity provider. The OIDC discovery document is
// fetched once at construction.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{
		revokeURL:  config.RevokeURL,
		httpClient: httpClient,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	scopes := strings.Fields(config.Scope)
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       scopes,
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

// SignIn exchanges the email/password pair for a token and returns the
// authenticated user's handle. A definitive rejection by the identity
// service wraps ports.ErrInvalidCredentials; anything that prevented the
// service from answering wraps ports.ErrServiceUnavailable.
func (p *Provider) SignIn(ctx context.Context, creds ports.Credentials) (ports.UserHandle, error) {
	if creds.Email == "" || creds.Password == "" {
		return ports.UserHandle{}, fmt.Errorf("%w: email and password are required", ports.ErrInvalidCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.PasswordCredentialsToken(ctx, creds.Email, creds.Password)
	if err != nil {
		return ports.UserHandle{}, classifyTokenError(err)
	}

	subject, email, err := p.extractSubject(ctx, token)
	if err != nil {
		return ports.UserHandle{}, fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
	}
	if email == "" {
		email = creds.Email
	}

	return ports.UserHandle{UserID: subject, Email: email}, nil
}

// SignOut revokes provider-side state when a revocation endpoint is
// configured. It is best-effort; callers log failures and proceed.
func (p *Provider) SignOut(ctx context.Context, userID string) error {
	if p.revokeURL == "" || userID == "" {
		return nil
	}

	form := url.Values{"user_id": {userID}}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("revoke request failed with status %d", resp.StatusCode)
	}
	return nil
}

// extractSubject resolves the token subject, preferring a verified id_token
// and falling back to the userinfo endpoint.
func (p *Provider) extractSubject(ctx context.Context, token *oauth2.Token) (string, string, error) {
	if rawID, ok := token.Extra("id_token").(string); ok && rawID != "" {
		idTok, err := p.verifier.Verify(ctx, rawID)
		if err != nil {
			return "", "", fmt.Errorf("verify id_token: %w", err)
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idTok.Claims(&claims); err != nil {
			return "", "", fmt.Errorf("parse id_token claims: %w", err)
		}
		return idTok.Subject, claims.Email, nil
	}

	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return "", "", fmt.Errorf("fetch user info: %w", err)
	}
	return ui.Subject, ui.Email, nil
}

// classifyTokenError splits token-endpoint failures into the two sentinel
// categories the login flow distinguishes.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			// The service answered and said no.
			return fmt.Errorf("%w: %v", ports.ErrInvalidCredentials, err)
		default:
			return fmt.Errorf("%w: token endpoint returned %d", ports.ErrServiceUnavailable, retrieveErr.Response.StatusCode)
		}
	}
	// Transport-level failure: DNS, timeout, refused connection.
	return fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
}
