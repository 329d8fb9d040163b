package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionSweeper removes sessions past their expiry.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemorySweeper removes memories past their retention window.
type MemorySweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LockoutSweeper clears lockout timestamps that have already elapsed.
type LockoutSweeper interface {
	ClearElapsedLockouts(ctx context.Context, now time.Time) (int64, error)
}

// BlobLister enumerates and removes stored upload blobs.
type BlobLister interface {
	ListKeys(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, objectKey string) error
}

// UploadKeySource reports which object keys still have metadata rows.
type UploadKeySource interface {
	ObjectKeys(ctx context.Context) (map[string]struct{}, error)
}

// Scheduler runs the periodic cleanup sweep: expired sessions, expired
// memories and elapsed lockouts.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionSweeper
	memories MemorySweeper
	lockouts LockoutSweeper
	blobs    BlobLister
	uploads  UploadKeySource
	timeout  time.Duration
	log      zerolog.Logger
}

func NewScheduler(sessions SessionSweeper, memories MemorySweeper, lockouts LockoutSweeper, blobs BlobLister, uploads UploadKeySource, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		memories: memories,
		lockouts: lockouts,
		blobs:    blobs,
		uploads:  uploads,
		timeout:  time.Minute,
		log:      log,
	}
}

func (s *Scheduler) Start(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Dur("interval", interval).Msg("cleanup scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("cleanup scheduler stop timed out")
	}
}

// Sweep runs one cleanup pass. Each stage is independent: a failure in one
// is logged and the others still run.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	now := time.Now()

	if n, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("sweep expired sessions")
	} else if n > 0 {
		s.log.Info().Int64("count", n).Msg("expired sessions removed")
	}

	if n, err := s.memories.DeleteExpired(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("sweep expired memories")
	} else if n > 0 {
		s.log.Info().Int64("count", n).Msg("expired memories removed")
	}

	if n, err := s.lockouts.ClearElapsedLockouts(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("sweep elapsed lockouts")
	} else if n > 0 {
		s.log.Info().Int64("count", n).Msg("elapsed lockouts cleared")
	}

	if n, err := s.sweepOrphanBlobs(ctx); err != nil {
		s.log.Error().Err(err).Msg("sweep orphan blobs")
	} else if n > 0 {
		s.log.Info().Int64("count", n).Msg("orphan blobs removed")
	}
}

// sweepOrphanBlobs removes bucket objects whose metadata row is gone, e.g.
// after a crash between blob write and row insert.
func (s *Scheduler) sweepOrphanBlobs(ctx context.Context) (int64, error) {
	keys, err := s.blobs.ListKeys(ctx)
	if err != nil {
		return 0, err
	}
	known, err := s.uploads.ObjectKeys(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}
		if err := s.blobs.Remove(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("object_key", key).Msg("remove orphan blob")
			continue
		}
		removed++
	}
	return removed, nil
}
