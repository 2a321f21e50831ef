package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
	"studynotion/backend/repository"
)

type AccountService struct {
	store  repository.Store
	logger zerolog.Logger
}

func NewAccountService(store repository.Store, logger zerolog.Logger) *AccountService {
	return &AccountService{store: store, logger: logger}
}

// DeleteAccount removes the user from every roster and drops their progress,
// profile and user row in one store transaction.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	orphaned, err := s.store.PurgeUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	for _, courseID := range orphaned {
		s.logger.Warn().
			Str("user_id", userID.String()).
			Str("course_id", courseID.String()).
			Msg("enrolled course no longer exists, skipping")
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("account deleted")
	return nil
}

// EnrolledCourses lists the user's courses with total duration and progress.
func (s *AccountService) EnrolledCourses(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error) {
	if _, err := s.store.FindUser(ctx, userID); err != nil {
		return nil, err
	}
	courses, err := s.store.EnrolledCourses(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.EnrolledCourse, 0, len(courses))
	for i := range courses {
		course := &courses[i]
		progress, err := s.store.FindProgress(ctx, userID, course.ID)
		if err != nil && !errors.Is(err, apperrors.ErrProgressNotFound) {
			return nil, err
		}
		out = append(out, models.EnrolledCourse{
			Course:             *course,
			TotalDuration:      CourseDuration(course),
			ProgressPercentage: Percentage(course.SubSectionCount(), progress.CompletedIn(course)),
		})
	}
	return out, nil
}

func (s *AccountService) InstructorDashboard(ctx context.Context, instructorID uuid.UUID) ([]models.CourseStats, error) {
	courses, err := s.store.InstructorCourses(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	stats := make([]models.CourseStats, 0, len(courses))
	for _, course := range courses {
		enrolled := len(course.StudentsEnrolled)
		stats = append(stats, models.CourseStats{
			ID:                    course.ID,
			CourseName:            course.CourseName,
			CourseDescription:     course.CourseDescription,
			TotalStudentsEnrolled: enrolled,
			TotalAmountGenerated:  course.Price * float64(enrolled),
		})
	}
	return stats, nil
}
