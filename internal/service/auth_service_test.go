package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personavault/api/internal/models"
	"personavault/api/internal/service"
)

const (
	testThreshold  = 5
	testLockFor    = 15 * time.Minute
	testSessionTTL = time.Hour
)

func newAuthService(users *fakeUserStore, sessions *fakeSessionStore) *service.AuthService {
	guard := service.NewAccountGuard(users, testThreshold, testLockFor, zerolog.Nop())
	return service.NewAuthService(users, sessions, guard, testSessionTTL, time.Second, zerolog.Nop())
}

func register(t *testing.T, svc *service.AuthService, username, password string) service.AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), service.RegisterInput{
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	return result
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newFakeUserStore(), newFakeSessionStore())

	_, err := svc.Register(context.Background(), service.RegisterInput{Username: "", Password: "secret"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Register(context.Background(), service.RegisterInput{Username: "alice", Password: ""})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Email:    "not-an-email",
		Password: "secret",
	})
	assert.ErrorIs(t, err, service.ErrInvalidEmail)
}

func TestRegisterDuplicate(t *testing.T) {
	users := newFakeUserStore()
	svc := newAuthService(users, newFakeSessionStore())

	register(t, svc, "alice", "secret")

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Password: "other",
	})
	assert.ErrorIs(t, err, service.ErrDuplicateAccount)
}

func TestRegisterCreatesLiveSession(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newAuthService(newFakeUserStore(), sessions)

	result := register(t, svc, "alice", "secret")

	require.NotEmpty(t, result.Session.ID)
	assert.Equal(t, 1, sessions.countByUser(result.User.ID))

	user, err := svc.Validate(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
}

func TestLoginReplacesSession(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newAuthService(newFakeUserStore(), sessions)

	first := register(t, svc, "alice", "secret")

	second, err := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, 1, sessions.countByUser(second.User.ID))

	// The session from registration is dead after the login.
	_, err = svc.Validate(context.Background(), first.Session.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = svc.Validate(context.Background(), second.Session.ID)
	assert.NoError(t, err)
}

func TestLoginUnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	svc := newAuthService(newFakeUserStore(), newFakeSessionStore())
	register(t, svc, "alice", "secret")

	_, errUnknown := svc.Login(context.Background(), service.LoginInput{
		Username: "nobody",
		Password: "whatever",
	})
	_, errWrong := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "wrong",
	})

	assert.ErrorIs(t, errUnknown, service.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, service.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLockoutAfterThresholdFailures(t *testing.T) {
	users := newFakeUserStore()
	svc := newAuthService(users, newFakeSessionStore())
	result := register(t, svc, "alice", "secret")

	for i := 0; i < testThreshold; i++ {
		_, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	}

	// Correct password does not get through an active lockout.
	_, err := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "secret",
	})
	assert.ErrorIs(t, err, service.ErrAccountLocked)

	locked, getErr := users.GetByID(context.Background(), result.User.ID)
	require.NoError(t, getErr)
	require.NotNil(t, locked.LockedUntil)
	assert.True(t, locked.LockedUntil.After(time.Now()))
}

func TestLoginBelowThresholdStillAllowed(t *testing.T) {
	svc := newAuthService(newFakeUserStore(), newFakeSessionStore())
	register(t, svc, "alice", "secret")

	for i := 0; i < testThreshold-1; i++ {
		_, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	}

	_, err := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "secret",
	})
	assert.NoError(t, err)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	users := newFakeUserStore()
	svc := newAuthService(users, newFakeSessionStore())
	result := register(t, svc, "alice", "secret")

	for i := 0; i < 3; i++ {
		svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "wrong"})
	}

	_, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	user, err := users.GetByID(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Zero(t, user.FailedAttempts)
	assert.NotNil(t, user.LastLoginAt)
}

func TestValidateExpiredSession(t *testing.T) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := newAuthService(users, sessions)
	result := register(t, svc, "alice", "secret")

	// Force expiry.
	sessions.mu.Lock()
	expired := sessions.sessions[result.Session.ID]
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	sessions.sessions[result.Session.ID] = expired
	sessions.mu.Unlock()

	_, err := svc.Validate(context.Background(), result.Session.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// Expired session was lazily removed.
	assert.Equal(t, 0, sessions.countByUser(result.User.ID))
}

func TestValidateGarbageSession(t *testing.T) {
	svc := newAuthService(newFakeUserStore(), newFakeSessionStore())

	_, err := svc.Validate(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = svc.Validate(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestLogout(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newAuthService(newFakeUserStore(), sessions)
	result := register(t, svc, "alice", "secret")

	require.NoError(t, svc.Logout(context.Background(), result.Session.ID))
	_, err := svc.Validate(context.Background(), result.Session.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// Logging out an already-dead session is a no-op.
	assert.NoError(t, svc.Logout(context.Background(), result.Session.ID))
}

func TestLogoutAll(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newAuthService(newFakeUserStore(), sessions)
	result := register(t, svc, "alice", "secret")

	require.NoError(t, svc.LogoutAll(context.Background(), result.User.ID))
	assert.Equal(t, 0, sessions.countByUser(result.User.ID))
}

// stallingUserStore blocks lookups until the caller's context expires, the
// way a wedged database connection would.
type stallingUserStore struct {
	*fakeUserStore
}

func (s *stallingUserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	<-ctx.Done()
	return models.User{}, ctx.Err()
}

func TestStalledStoreFailsWithinTimeout(t *testing.T) {
	users := &stallingUserStore{fakeUserStore: newFakeUserStore()}
	guard := service.NewAccountGuard(users, testThreshold, testLockFor, zerolog.Nop())
	svc := service.NewAuthService(users, newFakeSessionStore(), guard, testSessionTTL, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	_, err := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "secret",
	})
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStoreFailureSurfacesAsUnavailable(t *testing.T) {
	users := newFakeUserStore()
	users.err = context.DeadlineExceeded
	svc := newAuthService(users, newFakeSessionStore())

	_, err := svc.Login(context.Background(), service.LoginInput{
		Username: "alice",
		Password: "secret",
	})
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}
