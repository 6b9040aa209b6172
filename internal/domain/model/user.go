package model

import (
	"strings"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
)

type Name struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// Account holds credentials. Refresh token hashes live in their own table and are
// reached through the account repository.
type Account struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          Name      `json:"name"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	GoogleID      string    `json:"googleAccount,omitempty"`
	IPs           []string  `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewAccount(email string, name Name, passwordHash, ip string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	a := &Account{
		ID:           NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ip != "" {
		a.IPs = []string{ip}
	}
	return a, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Profile is the optional public face of an account, created on first access.
type Profile struct {
	AccountID   string    `json:"account"`
	Username    *string   `json:"username,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarURL,omitempty"`
	Language    string    `json:"language"`
	Bio         string    `json:"bio,omitempty"`
	Goals       []string  `json:"goals"`
	Gender      Gender    `json:"gender"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const DefaultLanguage = "pl"

func NewProfile(accountID string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		AccountID: accountID,
		Language:  DefaultLanguage,
		Goals:     []string{},
		Gender:    GenderOther,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProfilePatch carries the optional fields of a profile update; nil means unchanged.
type ProfilePatch struct {
	Username    *string
	DisplayName *string
	Language    *string
	Bio         *string
	Goals       []string
	GoalsSet    bool
}

func (p *Profile) Apply(patch ProfilePatch) {
	if patch.Username != nil {
		u := *patch.Username
		p.Username = &u
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.GoalsSet {
		p.Goals = append([]string{}, patch.Goals...)
	}
	p.UpdatedAt = time.Now().UTC()
}

// VerificationRequest binds a one-time token and numeric code to an account.
type VerificationRequest struct {
	ID        string
	AccountID string
	TokenHash string
	Code      string
	ExpiresAt time.Time
}

func (v *VerificationRequest) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
