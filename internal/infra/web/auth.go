package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
)

var _ adapter.TokenIssuer = (*AuthManager)(nil)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errInvalidToken = errors.New("invalid token")

// ===== JWT primitives =====

type AuthConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthManager mints and verifies the access/refresh pair. The two token kinds are signed with
// different secrets and carry their kind in the "type" claim.
type AuthManager struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *AuthManager {
	if accessTTL <= 0 {
		accessTTL = 10 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &AuthManager{
		cfg: AuthConfig{
			AccessSecret:  []byte(accessSecret),
			RefreshSecret: []byte(refreshSecret),
			AccessTTL:     accessTTL,
			RefreshTTL:    refreshTTL,
		},
		now: time.Now,
	}
}

type AccountClaims struct {
	AccountID string `json:"accountId"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

func (a *AuthManager) Issue(accountID string) (adapter.TokenPair, error) {
	now := a.now()
	access, err := a.sign(accountID, tokenTypeAccess, a.cfg.AccessSecret, now, a.cfg.AccessTTL)
	if err != nil {
		return adapter.TokenPair{}, err
	}
	refresh, err := a.sign(accountID, tokenTypeRefresh, a.cfg.RefreshSecret, now, a.cfg.RefreshTTL)
	if err != nil {
		return adapter.TokenPair{}, err
	}
	return adapter.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(a.cfg.RefreshTTL),
	}, nil
}

func (a *AuthManager) sign(accountID, kind string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := AccountClaims{
		AccountID: accountID,
		Type:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   accountID,
			// jti keeps two pairs minted within the same second distinct
			ID: newRequestID(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseRefresh returns the account id of a valid refresh token.
func (a *AuthManager) ParseRefresh(token string) (string, error) {
	return a.parse(token, tokenTypeRefresh, a.cfg.RefreshSecret)
}

// ParseAccess returns the account id of a valid access token.
func (a *AuthManager) ParseAccess(token string) (string, error) {
	return a.parse(token, tokenTypeAccess, a.cfg.AccessSecret)
}

// ParseFromRequest reads "Authorization: Bearer <jwt>".
func (a *AuthManager) ParseFromRequest(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return a.ParseAccess(strings.TrimSpace(hdr[7:]))
	}
	return "", errors.New("missing token")
}

func (a *AuthManager) parse(tok, kind string, secret []byte) (string, error) {
	claims := &AccountClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid || claims.Type != kind || claims.AccountID == "" {
		return "", errInvalidToken
	}
	return claims.AccountID, nil
}
