package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personavault/api/internal/config"
	"personavault/api/internal/middleware"
	"personavault/api/internal/models"
	"personavault/api/internal/repository"
	"personavault/api/internal/service"
)

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) Create(_ context.Context, u models.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) UsernameOrEmailTaken(_ context.Context, username, email string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) RecordLoginFailure(_ context.Context, userID string, threshold int, lockFor time.Duration) error {
	u := m.users[userID]
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	m.users[userID] = u
	return nil
}

func (m *memUsers) RecordLoginSuccess(_ context.Context, userID string) error {
	u := m.users[userID]
	u.FailedAttempts = 0
	m.users[userID] = u
	return nil
}

type memSessions struct {
	sessions map[string]models.Session
}

func (m *memSessions) Create(_ context.Context, s models.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) Replace(_ context.Context, s models.Session) error {
	for id, existing := range m.sessions {
		if existing.UserID == s.UserID {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (models.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (m *memSessions) DeleteByID(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionTTL:      time.Hour,
			MaxFailedLogins: 5,
			LockoutDuration: 15 * time.Minute,
			StoreTimeout:    time.Second,
		},
	}

	users := &memUsers{users: make(map[string]models.User)}
	sessions := &memSessions{sessions: make(map[string]models.Session)}
	guard := service.NewAccountGuard(users, cfg.Security.MaxFailedLogins, cfg.Security.LockoutDuration, zerolog.Nop())
	auth := service.NewAuthService(users, sessions, guard, cfg.Security.SessionTTL, cfg.Security.StoreTimeout, zerolog.Nop())

	h := HandlerSet{
		log:         zerolog.Nop(),
		cfg:         cfg,
		authService: auth,
	}

	r := gin.New()
	r.POST("/register", h.RegisterAccount)
	r.POST("/login", h.Login)
	r.POST("/validate-session", h.ValidateSession)
	r.POST("/logout", middleware.SessionAuth(auth), h.Logout)
	return r
}

func postJSON(router *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/register", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure, "secure only in production")
}

func TestValidateSessionUnauthenticatedPayload(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/validate-session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Authenticated bool     `json:"authenticated"`
		Theme         string   `json:"theme"`
		Widgets       []string `json:"widgets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.False(t, payload.Authenticated)
	assert.Equal(t, "light", payload.Theme)
	assert.Equal(t, []string{"chat", "settings", "agent"}, payload.Widgets)
}

func TestValidateSessionAuthenticated(t *testing.T) {
	router := newTestRouter(t)

	reg := postJSON(router, "/register", `{"username":"alice","password":"secret"}`)
	cookie := sessionCookie(t, reg)

	rec := postJSON(router, "/validate-session", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Authenticated)
	assert.Equal(t, "alice", payload.User.Username)
}

func TestLoginStatusCodes(t *testing.T) {
	router := newTestRouter(t)
	postJSON(router, "/register", `{"username":"alice","password":"secret"}`)

	rec := postJSON(router, "/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(router, "/login", `{"username":"nobody","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(router, "/login", `{"username":"alice","password":"secret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLockedAccountGetsForbidden(t *testing.T) {
	router := newTestRouter(t)
	postJSON(router, "/register", `{"username":"alice","password":"secret"}`)

	for i := 0; i < 5; i++ {
		postJSON(router, "/login", `{"username":"alice","password":"wrong"}`)
	}

	rec := postJSON(router, "/login", `{"username":"alice","password":"secret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	router := newTestRouter(t)

	reg := postJSON(router, "/register", `{"username":"alice","password":"secret"}`)
	cookie := sessionCookie(t, reg)

	rec := postJSON(router, "/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// Session is dead afterwards.
	rec = postJSON(router, "/logout", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	router := newTestRouter(t)

	postJSON(router, "/register", `{"username":"alice","password":"secret"}`)
	rec := postJSON(router, "/register", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
