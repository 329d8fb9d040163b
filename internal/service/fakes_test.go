package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"personavault/api/internal/models"
	"personavault/api/internal/repository"
)

// In-memory stand-ins for the pgx-backed repositories.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
	err   error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) UsernameOrEmailTaken(_ context.Context, username, email string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) RecordLoginFailure(_ context.Context, userID string, threshold int, lockFor time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	f.users[userID] = u
	return nil
}

func (f *fakeUserStore) RecordLoginSuccess(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedAttempts = 0
	now := time.Now()
	u.LastLoginAt = &now
	f.users[userID] = u
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	err      error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Replace(_ context.Context, session models.Session) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == session.UserID {
			delete(f.sessions, id)
		}
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	if f.err != nil {
		return models.Session{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) DeleteByID(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteByUser(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessionStore) countByUser(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings map[string]models.AISetting
	err      error
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: make(map[string]models.AISetting)}
}

func (f *fakeSettingsStore) SaveActive(_ context.Context, setting models.AISetting) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.settings {
		if s.UserID == setting.UserID && s.IsActive {
			s.IsActive = false
			f.settings[id] = s
		}
	}
	setting.IsActive = true
	setting.CreatedAt = time.Now()
	f.settings[setting.ID] = setting
	return nil
}

func (f *fakeSettingsStore) GetActive(_ context.Context, userID string) (models.AISetting, error) {
	if f.err != nil {
		return models.AISetting{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.settings {
		if s.UserID == userID && s.IsActive {
			return s, nil
		}
	}
	return models.AISetting{}, repository.ErrSettingNotFound
}

func (f *fakeSettingsStore) GetByID(_ context.Context, userID, settingID string) (models.AISetting, error) {
	if f.err != nil {
		return models.AISetting{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[settingID]; ok && s.UserID == userID {
		return s, nil
	}
	return models.AISetting{}, repository.ErrSettingNotFound
}

func (f *fakeSettingsStore) ListByUser(_ context.Context, userID string) ([]models.AISetting, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AISetting
	for _, s := range f.settings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSettingsStore) Delete(_ context.Context, userID, settingID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[settingID]; ok && s.UserID == userID {
		delete(f.settings, settingID)
		return nil
	}
	return repository.ErrSettingNotFound
}

// fakeSealer marks ciphertext with a prefix so tests can assert that a value
// passed through encryption without pulling in the real vault.
type fakeSealer struct{}

func (fakeSealer) Encrypt(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	return "enc:" + plaintext
}

func (fakeSealer) Decrypt(ciphertext string) string {
	return strings.TrimPrefix(ciphertext, "enc:")
}

type fakeMemoryStore struct {
	mu       sync.Mutex
	memories map[string]models.Memory
	err      error
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{memories: make(map[string]models.Memory)}
}

func (f *fakeMemoryStore) Create(_ context.Context, memory models.Memory) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	memory.CreatedAt = time.Now()
	f.memories[memory.ID] = memory
	return nil
}

func (f *fakeMemoryStore) GetByID(_ context.Context, userID, memoryID string) (models.Memory, error) {
	if f.err != nil {
		return models.Memory{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.memories[memoryID]; ok && m.UserID == userID {
		return m, nil
	}
	return models.Memory{}, repository.ErrMemoryNotFound
}

func (f *fakeMemoryStore) ListByUser(_ context.Context, userID, memoryType string) ([]models.Memory, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Memory
	for _, m := range f.memories {
		if m.UserID == userID && (memoryType == "" || m.MemoryType == memoryType) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) Search(_ context.Context, userID, text string) ([]models.Memory, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Memory
	for _, m := range f.memories {
		if m.UserID == userID && strings.Contains(strings.ToLower(m.Content), strings.ToLower(text)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) Delete(_ context.Context, userID, memoryID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.memories[memoryID]; ok && m.UserID == userID {
		delete(f.memories, memoryID)
		return nil
	}
	return repository.ErrMemoryNotFound
}

type fakeUploadStore struct {
	mu      sync.Mutex
	uploads map[string]models.Upload
	err     error
}

func newFakeUploadStore() *fakeUploadStore {
	return &fakeUploadStore{uploads: make(map[string]models.Upload)}
}

func (f *fakeUploadStore) Create(_ context.Context, upload models.Upload) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[upload.ID] = upload
	return nil
}

func (f *fakeUploadStore) ListByUser(_ context.Context, userID string) ([]models.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Upload
	for _, u := range f.uploads {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUploadStore) GetByID(_ context.Context, userID, uploadID string) (models.Upload, error) {
	if f.err != nil {
		return models.Upload{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.uploads[uploadID]; ok && u.UserID == userID {
		return u, nil
	}
	return models.Upload{}, repository.ErrUploadNotFound
}

func (f *fakeUploadStore) Delete(_ context.Context, userID, uploadID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.uploads[uploadID]; ok && u.UserID == userID {
		delete(f.uploads, uploadID)
		return nil
	}
	return repository.ErrUploadNotFound
}

type fakeBlobStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, objectKey, _ string, reader io.Reader, _ int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[objectKey] = data
	return nil
}

func (f *fakeBlobStore) Remove(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[objectKey]; !ok {
		return errors.New("blob not found")
	}
	delete(f.blobs, objectKey)
	return nil
}
