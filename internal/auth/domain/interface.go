package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/judovisa/auth-service/internal/auth/domain UserRepository

import (
	"context"
	"time"
)

// UserRepository is the credential store. Lookups return (nil, nil) when the
// record is absent; unique-constraint violations come back as taxonomy errors.
type UserRepository interface {
	// GetByUsername only returns active users; for authentication purposes an
	// inactive account is indistinguishable from a missing one.
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)

	// CreateWithPerson writes both records in a single transaction so a
	// failed profile insert never leaves an orphaned user behind.
	CreateWithPerson(ctx context.Context, user *User, person *Person) error

	GetPersonByUserID(ctx context.Context, userID string) (*Person, error)
	GetPersonByEmail(ctx context.Context, email string) (*Person, error)
	UpdateUsername(ctx context.Context, userID, username string) error
	UpdatePerson(ctx context.Context, userID string, update PersonUpdate) error

	UpdateLoginAttempts(ctx context.Context, userID string, attempts int, lockUntil *time.Time) error
	ResetLoginAttempts(ctx context.Context, userID string) error

	// StoreRefreshToken inserts and evicts the oldest tokens beyond max.
	StoreRefreshToken(ctx context.Context, rt *RefreshToken, max int) error
	GetRefreshToken(ctx context.Context, userID, token string) (*RefreshToken, error)
	// RotateRefreshToken removes oldToken and inserts newToken in one
	// transaction; it fails if oldToken is no longer in the set.
	RotateRefreshToken(ctx context.Context, userID, oldToken string, newToken *RefreshToken) error
	DeleteRefreshToken(ctx context.Context, userID, token string) error
	DeleteAllRefreshTokens(ctx context.Context, userID string) error

	// UpdatePassword replaces the hash and wipes all refresh tokens,
	// forcing re-login everywhere.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ClearPasswordResetToken(ctx context.Context, userID string) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	// ResetPassword replaces the hash, clears the reset fields and wipes all
	// refresh tokens in one transaction.
	ResetPassword(ctx context.Context, userID, passwordHash string) error

	// Deactivate soft-deletes: marks inactive, tombstones the username and
	// wipes refresh tokens. Purge hard-deletes the user, profile and scores.
	Deactivate(ctx context.Context, userID string) error
	Purge(ctx context.Context, userID string) error

	InsertAuditLog(ctx context.Context, entry *AuditLog) error
}
