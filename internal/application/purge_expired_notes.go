package application

import (
	"context"
	"fmt"
	"time"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// TimeProvider abstracts time acquisition for testability.
type TimeProvider func() time.Time

// RealTime returns the current UTC time.
func RealTime() time.Time {
	return time.Now().UTC()
}

// PurgeExpiredNotesUseCase deletes notes older than a maximum age.
type PurgeExpiredNotesUseCase struct {
	uow          UnitOfWork
	noteRepo     domain.NoteRepository
	cache        NoteCache
	timeProvider TimeProvider
	logger       *logging.Logger
}

// NewPurgeExpiredNotesUseCase creates a new PurgeExpiredNotesUseCase.
func NewPurgeExpiredNotesUseCase(
	uow UnitOfWork,
	noteRepo domain.NoteRepository,
	cache NoteCache,
	timeProvider TimeProvider,
	logger *logging.Logger,
) *PurgeExpiredNotesUseCase {
	if timeProvider == nil {
		timeProvider = RealTime
	}
	return &PurgeExpiredNotesUseCase{
		uow:          uow,
		noteRepo:     noteRepo,
		cache:        cache,
		timeProvider: timeProvider,
		logger:       logger.WithComponent("purge_expired_notes"),
	}
}

// Execute deletes every note created more than maxAge ago and returns how
// many were removed.
func (uc *PurgeExpiredNotesUseCase) Execute(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("%w: max age must be positive", domain.ErrInvalidInput)
	}
	cutoff := uc.timeProvider().Add(-maxAge)

	var deleted int64
	err := ensureUnitOfWork(ctx, uc.uow, func(ctx context.Context) error {
		return uc.uow.RunInTransaction(ctx, func(ctx context.Context) error {
			var err error
			deleted, err = uc.noteRepo.DeleteCreatedBefore(ctx, cutoff)
			return err
		}, unitofwork.Hooks{
			PostCommit: func(ctx context.Context) error {
				if deleted == 0 {
					return nil
				}
				if err := uc.cache.InvalidateAll(ctx); err != nil {
					uc.logger.Warn("failed to invalidate note cache after purge", "error", err)
				}
				return nil
			},
		})
	})
	if err != nil {
		return 0, err
	}

	uc.logger.Info("expired notes purged",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return deleted, nil
}
