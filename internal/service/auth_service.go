package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/ids"
	"personavault/api/internal/models"
	"personavault/api/internal/repository"
	"personavault/api/internal/security"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserStore is what the auth service needs from the user repository.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
}

// SessionStore is what the auth service needs from the session repository.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	Replace(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type AuthService struct {
	users        UserStore
	sessions     SessionStore
	guard        *AccountGuard
	sessionTTL   time.Duration
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewAuthService(users UserStore, sessions SessionStore, guard *AccountGuard, sessionTTL, storeTimeout time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		guard:        guard,
		sessionTTL:   sessionTTL,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	User    models.User
	Session models.Session
}

// Register creates the account and immediately logs it in: the returned
// session is live.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if input.Username == "" || input.Password == "" {
		return AuthResult{}, ErrValidation
	}
	if input.Email != "" && !emailPattern.MatchString(input.Email) {
		return AuthResult{}, ErrInvalidEmail
	}

	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	taken, err := s.users.UsernameOrEmailTaken(ctx, input.Username, input.Email)
	if err != nil {
		return AuthResult{}, s.storeErr(err, "check duplicate account")
	}
	if taken {
		return AuthResult{}, ErrDuplicateAccount
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, s.storeErr(err, "hash password")
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Theme:        models.DefaultTheme,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, s.storeErr(err, "create user")
	}

	session, err := s.newSession(user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, s.storeErr(err, "create session")
	}

	s.log.Info().Str("user_id", user.ID).Msg("account registered")
	return AuthResult{User: user, Session: session}, nil
}

// Login authenticates the account and replaces any prior sessions with a
// fresh one. Unknown usernames and wrong passwords both surface as
// ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Username == "" || input.Password == "" {
		return AuthResult{}, ErrValidation
	}

	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, s.storeErr(err, "find user")
	}

	// Lockout wins over everything, including a correct password.
	if s.guard.IsLocked(user) {
		return AuthResult{}, ErrAccountLocked
	}

	if !user.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		s.guard.RecordFailure(ctx, user.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	s.guard.RecordSuccess(ctx, user.ID)

	session, err := s.newSession(user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.Replace(ctx, session); err != nil {
		return AuthResult{}, s.storeErr(err, "replace session")
	}

	s.log.Info().Str("user_id", user.ID).Msg("login")
	return AuthResult{User: user, Session: session}, nil
}

// Validate resolves a session identifier to its account. Absent, garbage and
// expired identifiers all come back as ErrUnauthorized.
func (s *AuthService) Validate(ctx context.Context, sessionID string) (models.User, error) {
	if sessionID == "" {
		return models.User{}, ErrUnauthorized
	}

	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, s.storeErr(err, "get session")
	}

	if !session.Valid(time.Now()) {
		// Lazy delete; the sweep would get to it eventually.
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Msg("delete expired session")
		}
		return models.User{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, s.storeErr(err, "get user")
	}

	return user, nil
}

// Logout revokes the single session. Revoking an absent session is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return s.storeErr(err, "delete session")
	}
	return nil
}

// LogoutAll revokes every session the account holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return s.storeErr(err, "delete sessions")
	}
	return nil
}

func (s *AuthService) newSession(userID, ip, userAgent string) (models.Session, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return models.Session{}, s.storeErr(err, "generate session token")
	}
	now := time.Now()
	return models.Session{
		ID:        token,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}, nil
}

func (s *AuthService) storeErr(err error, msg string) error {
	s.log.Error().Err(err).Msg(msg)
	return ErrStoreUnavailable
}
