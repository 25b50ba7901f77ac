package domain

import (
	"math"
	"time"
)

// User is the authentication record for one account. The password hash,
// reset-token fields, attempt counters and lock timestamp are never
// serialized outward.
type User struct {
	ID                   string
	Username             string // always lowercase; display casing lives on Person
	PasswordHash         string
	Role                 string
	LoginAttempts        int
	LockUntil            *time.Time
	PasswordResetToken   *string // sha256 hex of the raw token
	PasswordResetExpires *time.Time
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsLocked reports whether a lockout is set and still in the future.
func (u *User) IsLocked() bool {
	return u.LockUntil != nil && u.LockUntil.After(time.Now())
}

// LockMinutesLeft returns the remaining lockout rounded up to whole minutes.
func (u *User) LockMinutesLeft() int {
	if !u.IsLocked() {
		return 0
	}
	return int(math.Ceil(time.Until(*u.LockUntil).Minutes()))
}

// Person carries the personal data for one user, separate from the
// authentication record.
type Person struct {
	ID          string
	UserID      string
	DisplayName string // original casing of the username at registration
	FirstName   string
	LastName    string
	Email       string // always lowercase
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PersonUpdate holds the optional fields of a profile update; nil means
// leave unchanged.
type PersonUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// RefreshToken is one entry in a user's bounded set of valid refresh tokens
// (multi-device support, capped FIFO by CreatedAt).
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
}

// Audit event types.
const (
	EventRegister              = "register"
	EventLogin                 = "login"
	EventLoginFailed           = "login_failed"
	EventLogout                = "logout"
	EventPasswordResetRequest  = "password_reset_request"
	EventPasswordResetComplete = "password_reset_complete"
	EventAccountUpdated        = "account_updated"
	EventAccountDeleted        = "account_deleted"
)

// AuditLog is one recorded account event. Writing it is always best-effort.
type AuditLog struct {
	ID        string
	UserID    string
	Username  string
	Event     string
	IPAddress string
	UserAgent string
	Details   string
	CreatedAt time.Time
}
