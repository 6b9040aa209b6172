package adapter

import (
	"context"
	"time"
)

// GoogleIdentity is what we keep from a verified Google sign-in.
type GoogleIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// GoogleVerifier checks tokens issued by Google and resolves the signed-in identity.
type GoogleVerifier interface {
	// AuthCodeURL builds the consent redirect for the given opaque state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (GoogleIdentity, error)
	// VerifyIDToken validates an ID token obtained on the client.
	VerifyIDToken(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// TokenPair is a freshly minted access/refresh pair for one account.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

type TokenIssuer interface {
	Issue(accountID string) (TokenPair, error)
	// ParseRefresh validates a refresh token and returns the account it was issued to.
	ParseRefresh(token string) (string, error)
}
