package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"studynotion/backend/apperrors"
	"studynotion/backend/repository"
)

// Ledger owns the user/course enrollment relation.
type Ledger struct {
	store  repository.Store
	logger zerolog.Logger
}

func NewLedger(store repository.Store, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

func (l *Ledger) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	if _, err := l.store.FindUser(ctx, userID); err != nil {
		return err
	}
	if err := l.store.Enroll(ctx, userID, courseID); err != nil {
		return fmt.Errorf("enroll %s: %w", courseID, err)
	}
	return nil
}

func (l *Ledger) Unenroll(ctx context.Context, userID, courseID uuid.UUID) error {
	if err := l.store.Unenroll(ctx, userID, courseID); err != nil {
		return fmt.Errorf("unenroll %s: %w", courseID, err)
	}
	return nil
}

// UnenrollAll removes the user from every roster. Courses that no longer exist
// are skipped; other failures are collected and returned together.
func (l *Ledger) UnenrollAll(ctx context.Context, userID uuid.UUID) error {
	ids, err := l.store.EnrolledCourseIDs(ctx, userID)
	if err != nil {
		return err
	}

	var errs error
	for _, courseID := range ids {
		err := l.store.Unenroll(ctx, userID, courseID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrCourseNotFound):
			l.logger.Warn().
				Str("user_id", userID.String()).
				Str("course_id", courseID.String()).
				Msg("enrolled course no longer exists, skipping")
		default:
			errs = multierr.Append(errs, fmt.Errorf("unenroll %s: %w", courseID, err))
		}
	}
	return errs
}
