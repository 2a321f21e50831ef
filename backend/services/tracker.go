package services

import (
	"context"

	"github.com/google/uuid"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
	"studynotion/backend/repository"
)

type ProgressTracker struct {
	store repository.Store
}

func NewProgressTracker(store repository.Store) *ProgressTracker {
	return &ProgressTracker{store: store}
}

// MarkComplete records subSectionID as watched. Repeating it is a conflict.
func (t *ProgressTracker) MarkComplete(ctx context.Context, userID, courseID, subSectionID uuid.UUID) (*models.CourseProgress, error) {
	course, err := t.store.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.HasSubSection(subSectionID) {
		return nil, apperrors.ErrSubSectionNotFound
	}

	progress, err := t.store.FindOrCreateProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if progress.HasCompleted(subSectionID) {
		return nil, apperrors.ErrAlreadyCompleted
	}
	if err := t.store.AddCompletedVideo(ctx, progress.ID, subSectionID); err != nil {
		return nil, err
	}
	return t.store.FindProgress(ctx, userID, courseID)
}
