package domain_test

import (
	"testing"
	"time"

	"github.com/judovisa/auth-service/internal/auth/domain"
	"github.com/stretchr/testify/assert"
)

func TestUser_IsLocked(t *testing.T) {
	future := time.Now().Add(10 * time.Minute)
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name      string
		lockUntil *time.Time
		want      bool
	}{
		{"no lock", nil, false},
		{"lock in the future", &future, true},
		{"lock elapsed", &past, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := &domain.User{LockUntil: tc.lockUntil}
			assert.Equal(t, tc.want, u.IsLocked())
		})
	}
}

func TestUser_LockMinutesLeft(t *testing.T) {
	t.Run("rounds up to whole minutes", func(t *testing.T) {
		until := time.Now().Add(9*time.Minute + 30*time.Second)
		u := &domain.User{LockUntil: &until}
		assert.Equal(t, 10, u.LockMinutesLeft())
	})

	t.Run("zero when not locked", func(t *testing.T) {
		u := &domain.User{}
		assert.Equal(t, 0, u.LockMinutesLeft())
	})
}
