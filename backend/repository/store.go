// Package repository is the persistence port used by the enrollment, payment,
// progress and account services.
package repository

import (
	"context"

	"github.com/google/uuid"

	"studynotion/backend/models"
)

// Store returns apperrors sentinels (ErrUserNotFound, ErrCourseNotFound,
// ErrAlreadyEnrolled, ErrAlreadyCompleted, ...) so callers never see driver errors
// for expected conditions.
type Store interface {
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// FindCourse loads sections and subsections in order and fills StudentsEnrolled.
	FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error)

	IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	// Enroll inserts the relation and ensures a progress record for the pair in one unit of work.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) error
	// Unenroll removes the relation. It returns ErrCourseNotFound when the course is
	// gone; any dangling relation is removed regardless.
	Unenroll(ctx context.Context, userID, courseID uuid.UUID) error
	EnrolledCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	EnrolledCourses(ctx context.Context, userID uuid.UUID) ([]models.Course, error)
	InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error)

	FindProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error)
	FindOrCreateProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error)
	// AddCompletedVideo appends atomically; ErrAlreadyCompleted if already present.
	AddCompletedVideo(ctx context.Context, progressID, subSectionID uuid.UUID) error

	// PurgeUser removes the user with every enrollment and progress record in one
	// unit of work and returns enrolled course ids whose course is gone.
	PurgeUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
