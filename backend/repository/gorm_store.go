package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
)

// GormStore is the PostgreSQL Store. The *gorm.DB must be opened with
// TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// WithContent preloads sections and subsections in display order.
func WithContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CourseContent", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.position ASC, sections.created_at ASC")
		}).
		Preload("CourseContent.SubSections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_sections.position ASC, sub_sections.created_at ASC")
		})
}

func (s *GormStore) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}

	user.Courses, err = s.EnrolledCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := WithContent(s.db.WithContext(ctx)).First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find course %s: %w", courseID, err)
	}

	courses := []models.Course{course}
	if err := FillEnrollments(ctx, s.db, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

func (s *GormStore) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&course, "id = ?", courseID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCourseNotFound
		}
		if err != nil {
			return fmt.Errorf("lock course %s: %w", courseID, err)
		}

		if err := tx.Create(&models.Enrollment{UserID: userID, CourseID: courseID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrAlreadyEnrolled
			}
			return fmt.Errorf("insert enrollment: %w", err)
		}

		progress := models.CourseProgress{UserID: userID, CourseID: courseID, CompletedVideos: pq.StringArray{}}
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).FirstOrCreate(&progress).Error; err != nil {
			return fmt.Errorf("create course progress: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Unenroll(ctx context.Context, userID, courseID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&models.Enrollment{}).Error; err != nil {
			return fmt.Errorf("delete enrollment: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Course{}).Where("id = ?", courseID).Count(&count).Error; err != nil {
			return fmt.Errorf("check course %s: %w", courseID, err)
		}
		if count == 0 {
			return apperrors.ErrCourseNotFound
		}
		return nil
	})
}

func (s *GormStore) EnrolledCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return ids, nil
}

func (s *GormStore) EnrolledCourses(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	err := WithContent(s.db.WithContext(ctx)).
		Joins("JOIN course_enrollments ON course_enrollments.course_id = courses.id").
		Where("course_enrollments.user_id = ?", userID).
		Order("course_enrollments.created_at ASC").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	if err := FillEnrollments(ctx, s.db, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *GormStore) InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	if err := FillEnrollments(ctx, s.db, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *GormStore) FindProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	var progress models.CourseProgress
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find course progress: %w", err)
	}
	return &progress, nil
}

func (s *GormStore) FindOrCreateProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	progress := models.CourseProgress{UserID: userID, CourseID: courseID, CompletedVideos: pq.StringArray{}}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		FirstOrCreate(&progress).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the race against a concurrent create
		return s.FindProgress(ctx, userID, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("find or create course progress: %w", err)
	}
	return &progress, nil
}

func (s *GormStore) AddCompletedVideo(ctx context.Context, progressID, subSectionID uuid.UUID) error {
	id := subSectionID.String()
	res := s.db.WithContext(ctx).Model(&models.CourseProgress{}).
		Where("id = ? AND NOT (? = ANY(completed_videos))", progressID, id).
		Update("completed_videos", gorm.Expr("array_append(completed_videos, ?)", id))
	if res.Error != nil {
		return fmt.Errorf("append completed video: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CourseProgress{}).Where("id = ?", progressID).Count(&count).Error; err != nil {
		return fmt.Errorf("check course progress: %w", err)
	}
	if count == 0 {
		return apperrors.ErrProgressNotFound
	}
	return apperrors.ErrAlreadyCompleted
}

// PurgeUser deletes the user together with their enrollments, progress, reviews
// and profile in one transaction. It returns the enrolled course ids whose
// course no longer exists.
func (s *GormStore) PurgeUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var orphaned []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user %s: %w", userID, err)
		}

		orphaned = []uuid.UUID{}
		err = tx.Model(&models.Enrollment{}).
			Where("user_id = ?", userID).
			Where("NOT EXISTS (SELECT 1 FROM courses WHERE courses.id = course_enrollments.course_id)").
			Pluck("course_id", &orphaned).Error
		if err != nil {
			return fmt.Errorf("list orphaned enrollments: %w", err)
		}

		steps := []struct {
			what  string
			model interface{}
			where string
		}{
			{"enrollments", &models.Enrollment{}, "user_id = ?"},
			{"course progress", &models.CourseProgress{}, "user_id = ?"},
			{"reviews", &models.RatingAndReview{}, "user_id = ?"},
			{"profile", &models.Profile{}, "user_id = ?"},
			{"user", &models.User{}, "id = ?"},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, userID).Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", step.what, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}

// FillEnrollments sets StudentsEnrolled on every course with a single query.
func FillEnrollments(ctx context.Context, db *gorm.DB, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(courses))
	index := make(map[uuid.UUID]int, len(courses))
	for i := range courses {
		ids[i] = courses[i].ID
		index[courses[i].ID] = i
		courses[i].StudentsEnrolled = []uuid.UUID{}
	}

	var rows []models.Enrollment
	err := db.WithContext(ctx).
		Where("course_id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	for _, row := range rows {
		i := index[row.CourseID]
		courses[i].StudentsEnrolled = append(courses[i].StudentsEnrolled, row.UserID)
	}
	return nil
}

// AutoMigrate creates or updates every table the application uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.OTP{},
		&models.Category{},
		&models.Course{},
		&models.Section{},
		&models.SubSection{},
		&models.Enrollment{},
		&models.RatingAndReview{},
		&models.CourseProgress{},
	)
}
