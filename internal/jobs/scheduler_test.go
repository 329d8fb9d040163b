package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubSweeper struct {
	calls int
	err   error
}

func (s *stubSweeper) DeleteExpired(context.Context, time.Time) (int64, error) {
	s.calls++
	return 1, s.err
}

func (s *stubSweeper) ClearElapsedLockouts(context.Context, time.Time) (int64, error) {
	s.calls++
	return 1, s.err
}

type stubBlobs struct {
	keys    []string
	removed []string
}

func (s *stubBlobs) ListKeys(context.Context) ([]string, error) {
	return s.keys, nil
}

func (s *stubBlobs) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	return nil
}

type stubUploadKeys struct {
	known map[string]struct{}
}

func (s stubUploadKeys) ObjectKeys(context.Context) (map[string]struct{}, error) {
	return s.known, nil
}

func newTestScheduler(sessions, memories, lockouts *stubSweeper, blobs *stubBlobs, uploads stubUploadKeys) *Scheduler {
	return NewScheduler(sessions, memories, lockouts, blobs, uploads, zerolog.Nop())
}

func TestSweepRunsAllStages(t *testing.T) {
	sessions := &stubSweeper{}
	memories := &stubSweeper{}
	lockouts := &stubSweeper{}
	blobs := &stubBlobs{}

	s := newTestScheduler(sessions, memories, lockouts, blobs, stubUploadKeys{})
	s.Sweep()

	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 1, memories.calls)
	assert.Equal(t, 1, lockouts.calls)
}

func TestSweepStageFailureDoesNotStopOthers(t *testing.T) {
	sessions := &stubSweeper{err: errors.New("db down")}
	memories := &stubSweeper{}
	lockouts := &stubSweeper{}

	s := newTestScheduler(sessions, memories, lockouts, &stubBlobs{}, stubUploadKeys{})
	s.Sweep()

	assert.Equal(t, 1, memories.calls)
	assert.Equal(t, 1, lockouts.calls)
}

func TestSweepRemovesOnlyOrphanBlobs(t *testing.T) {
	blobs := &stubBlobs{keys: []string{"2026/08/26/a.txt", "2026/08/26/b.txt"}}
	uploads := stubUploadKeys{known: map[string]struct{}{"2026/08/26/a.txt": {}}}

	s := newTestScheduler(&stubSweeper{}, &stubSweeper{}, &stubSweeper{}, blobs, uploads)
	s.Sweep()

	assert.Equal(t, []string{"2026/08/26/b.txt"}, blobs.removed)
}
