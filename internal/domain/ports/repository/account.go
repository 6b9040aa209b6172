package repository

import (
	"context"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type AccountRepository interface {
	// Create returns domain.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, qx any, a *model.Account) error
	FindByID(ctx context.Context, qx any, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error)
	// UpsertGoogle links a Google subject to the account with this email, creating it if needed.
	UpsertGoogle(ctx context.Context, qx any, email, googleID string, name model.Name) (*model.Account, error)
	AddIP(ctx context.Context, qx any, id, ip string) error
	MarkEmailVerified(ctx context.Context, qx any, id string) error

	AddRefreshToken(ctx context.Context, qx any, accountID, tokenHash string, expiresAt time.Time) error
	// ConsumeRefreshToken removes the hash and reports whether it was present.
	ConsumeRefreshToken(ctx context.Context, qx any, accountID, tokenHash string) (bool, error)
}

type VerificationRepository interface {
	Create(ctx context.Context, qx any, v *model.VerificationRequest) error
	DeleteByAccount(ctx context.Context, qx any, accountID string) error
	FindValidByTokenHash(ctx context.Context, qx any, tokenHash string, now time.Time) (*model.VerificationRequest, error)
	Delete(ctx context.Context, qx any, id string) error
	DeleteExpired(ctx context.Context, qx any, now time.Time) (int64, error)
}

type ProfileRepository interface {
	// GetOrCreate returns the stored profile, inserting def first when none exists.
	GetOrCreate(ctx context.Context, qx any, def *model.Profile) (*model.Profile, error)
	// Update returns domain.ErrAlreadyExists when the username is taken.
	Update(ctx context.Context, qx any, p *model.Profile) error
}
