package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/models"
)

// GuardStore is the slice of the user store the guard writes through.
type GuardStore interface {
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockFor time.Duration) error
	RecordLoginSuccess(ctx context.Context, userID string) error
}

// AccountGuard tracks failed login attempts and temporary lockout per
// account. Its writes are durable the moment they are recorded, independent
// of the fate of the surrounding request.
type AccountGuard struct {
	store     GuardStore
	threshold int
	lockFor   time.Duration
	log       zerolog.Logger
}

func NewAccountGuard(store GuardStore, threshold int, lockFor time.Duration, log zerolog.Logger) *AccountGuard {
	return &AccountGuard{
		store:     store,
		threshold: threshold,
		lockFor:   lockFor,
		log:       log,
	}
}

// RecordFailure bumps the counter; crossing the threshold starts the lockout
// window. Errors are logged, never propagated: a failed bookkeeping write
// must not change the login outcome.
func (g *AccountGuard) RecordFailure(ctx context.Context, userID string) {
	if err := g.store.RecordLoginFailure(ctx, userID, g.threshold, g.lockFor); err != nil {
		g.log.Error().Err(err).Str("user_id", userID).Msg("record login failure")
	}
}

// RecordSuccess zeroes the counter and stamps last login. An already-running
// lockout window is left to expire on its own.
func (g *AccountGuard) RecordSuccess(ctx context.Context, userID string) {
	if err := g.store.RecordLoginSuccess(ctx, userID); err != nil {
		g.log.Error().Err(err).Str("user_id", userID).Msg("record login success")
	}
}

// IsLocked reports whether the account is inside an active lockout window.
func (g *AccountGuard) IsLocked(user models.User) bool {
	return user.Locked(time.Now())
}
