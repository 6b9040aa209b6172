package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

var _ adapter.GoogleVerifier = (*Verifier)(nil)

const callbackPath = "/v1/auth/google/callback"

// Verifier runs the authorization code flow and validates ID tokens against the
// tokeninfo endpoint.
type Verifier struct {
	oauth        *oauth2.Config
	tokenInfoURL string
	client       *http.Client
	now          func() time.Time
}

type Options struct {
	ClientID     string
	ClientSecret string
	PublicURL    string
	TokenInfoURL string
	// Endpoint overrides the Google OAuth endpoint.
	Endpoint   *oauth2.Endpoint
	HTTPClient *http.Client
}

func NewVerifier(opts Options) (*Verifier, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New("google client id/secret empty")
	}
	ep := googleoauth.Endpoint
	if opts.Endpoint != nil {
		ep = *opts.Endpoint
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	info := opts.TokenInfoURL
	if info == "" {
		info = "https://oauth2.googleapis.com/tokeninfo"
	}
	return &Verifier{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     ep,
			RedirectURL:  strings.TrimRight(opts.PublicURL, "/") + callbackPath,
			Scopes:       []string{"openid", "email", "profile"},
		},
		tokenInfoURL: info,
		client:       hc,
		now:          time.Now,
	}, nil
}

func (v *Verifier) AuthCodeURL(state string) string {
	return v.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for tokens and verifies the returned ID token.
func (v *Verifier) Exchange(ctx context.Context, code string) (adapter.GoogleIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	start := time.Now()
	tok, err := v.oauth.Exchange(ctx, code)
	metrics.ObserveAICall("google", "oauth_exchange", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return adapter.GoogleIdentity{}, fmt.Errorf("google exchange: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return adapter.GoogleIdentity{}, errors.New("google exchange: no id_token in response")
	}
	return v.VerifyIDToken(ctx, raw)
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Exp           string `json:"exp"`
}

func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (adapter.GoogleIdentity, error) {
	if idToken == "" {
		return adapter.GoogleIdentity{}, errors.New("empty id token")
	}
	u := v.tokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return adapter.GoogleIdentity{}, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return adapter.GoogleIdentity{}, fmt.Errorf("tokeninfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return adapter.GoogleIdentity{}, fmt.Errorf("tokeninfo: status %d", resp.StatusCode)
	}
	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return adapter.GoogleIdentity{}, fmt.Errorf("tokeninfo decode: %w", err)
	}

	if info.Aud != v.oauth.ClientID {
		return adapter.GoogleIdentity{}, errors.New("id token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return adapter.GoogleIdentity{}, errors.New("id token lacks subject or email")
	}
	if info.EmailVerified != "" && info.EmailVerified != "true" {
		return adapter.GoogleIdentity{}, errors.New("google email not verified")
	}
	if info.Exp != "" {
		exp, err := strconv.ParseInt(info.Exp, 10, 64)
		if err != nil || v.now().After(time.Unix(exp, 0)) {
			return adapter.GoogleIdentity{}, errors.New("id token expired")
		}
	}
	return adapter.GoogleIdentity{
		Subject:    info.Sub,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}
