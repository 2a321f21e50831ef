package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
)

type pairKey struct {
	userID   uuid.UUID
	courseID uuid.UUID
}

type enrollmentRecord struct {
	seq uint64
	at  time.Time
}

// MemoryStore keeps everything in maps. It seeds component and handler tests.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[uuid.UUID]models.User
	courses     map[uuid.UUID]models.Course
	enrollments map[pairKey]enrollmentRecord
	progress    map[pairKey]models.CourseProgress

	sequence uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]models.User),
		courses:     make(map[uuid.UUID]models.Course),
		enrollments: make(map[pairKey]enrollmentRecord),
		progress:    make(map[pairKey]models.CourseProgress),
	}
}

// PutUser inserts or replaces a user, assigning an id when missing.
func (s *MemoryStore) PutUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Courses = nil
	s.users[user.ID] = user
	return user
}

// PutCourse inserts or replaces a course, assigning ids to it and its content.
func (s *MemoryStore) PutCourse(course models.Course) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	course = cloneCourse(course)
	for i := range course.CourseContent {
		section := &course.CourseContent[i]
		if section.ID == uuid.Nil {
			section.ID = uuid.New()
		}
		section.CourseID = course.ID
		for j := range section.SubSections {
			if section.SubSections[j].ID == uuid.Nil {
				section.SubSections[j].ID = uuid.New()
			}
			section.SubSections[j].SectionID = section.ID
		}
	}
	course.StudentsEnrolled = nil
	s.courses[course.ID] = course
	return cloneCourse(course)
}

// RemoveCourse deletes the course row only, leaving enrollments dangling.
func (s *MemoryStore) RemoveCourse(courseID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, courseID)
}

func (s *MemoryStore) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	if user.Profile != nil {
		profile := *user.Profile
		user.Profile = &profile
	}
	user.Courses = s.courseIDsLocked(userID)
	return &user, nil
}

func (s *MemoryStore) FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, ok := s.courses[courseID]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	course = s.withStudentsLocked(course)
	return &course, nil
}

func (s *MemoryStore) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.enrollments[pairKey{userID, courseID}]
	return ok, nil
}

func (s *MemoryStore) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[courseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	key := pairKey{userID, courseID}
	if _, ok := s.enrollments[key]; ok {
		return apperrors.ErrAlreadyEnrolled
	}

	s.sequence++
	s.enrollments[key] = enrollmentRecord{seq: s.sequence, at: time.Now().UTC()}
	if _, ok := s.progress[key]; !ok {
		s.progress[key] = s.newProgressLocked(userID, courseID)
	}
	return nil
}

func (s *MemoryStore) Unenroll(ctx context.Context, userID, courseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.enrollments, pairKey{userID, courseID})
	if _, ok := s.courses[courseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

func (s *MemoryStore) EnrolledCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courseIDsLocked(userID), nil
}

func (s *MemoryStore) EnrolledCourses(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := []models.Course{}
	for _, id := range s.courseIDsLocked(userID) {
		if course, ok := s.courses[id]; ok {
			courses = append(courses, s.withStudentsLocked(course))
		}
	}
	return courses, nil
}

func (s *MemoryStore) InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := []models.Course{}
	for _, course := range s.courses {
		if course.InstructorID == instructorID {
			courses = append(courses, s.withStudentsLocked(course))
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses, nil
}

func (s *MemoryStore) FindProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress, ok := s.progress[pairKey{userID, courseID}]
	if !ok {
		return nil, apperrors.ErrProgressNotFound
	}
	progress.CompletedVideos = append(pq.StringArray{}, progress.CompletedVideos...)
	return &progress, nil
}

func (s *MemoryStore) FindOrCreateProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, courseID}
	progress, ok := s.progress[key]
	if !ok {
		progress = s.newProgressLocked(userID, courseID)
		s.progress[key] = progress
	}
	progress.CompletedVideos = append(pq.StringArray{}, progress.CompletedVideos...)
	return &progress, nil
}

func (s *MemoryStore) AddCompletedVideo(ctx context.Context, progressID, subSectionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, progress := range s.progress {
		if progress.ID != progressID {
			continue
		}
		if progress.HasCompleted(subSectionID) {
			return apperrors.ErrAlreadyCompleted
		}
		progress.CompletedVideos = append(append(pq.StringArray{}, progress.CompletedVideos...), subSectionID.String())
		progress.UpdatedAt = time.Now().UTC()
		s.progress[key] = progress
		return nil
	}
	return apperrors.ErrProgressNotFound
}

func (s *MemoryStore) PurgeUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	orphaned := []uuid.UUID{}
	for _, courseID := range s.courseIDsLocked(userID) {
		if _, ok := s.courses[courseID]; !ok {
			orphaned = append(orphaned, courseID)
		}
		delete(s.enrollments, pairKey{userID, courseID})
	}
	for key := range s.progress {
		if key.userID == userID {
			delete(s.progress, key)
		}
	}
	delete(s.users, userID)
	return orphaned, nil
}

func (s *MemoryStore) newProgressLocked(userID, courseID uuid.UUID) models.CourseProgress {
	now := time.Now().UTC()
	return models.CourseProgress{
		Base:            models.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:          userID,
		CourseID:        courseID,
		CompletedVideos: pq.StringArray{},
	}
}

// courseIDsLocked lists the user's course ids in enrollment order, including
// ids whose course row has since been removed.
func (s *MemoryStore) courseIDsLocked(userID uuid.UUID) []uuid.UUID {
	type entry struct {
		id  uuid.UUID
		seq uint64
	}
	var entries []entry
	for key, rec := range s.enrollments {
		if key.userID == userID {
			entries = append(entries, entry{key.courseID, rec.seq})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids
}

func (s *MemoryStore) withStudentsLocked(course models.Course) models.Course {
	type entry struct {
		id  uuid.UUID
		seq uint64
	}
	var entries []entry
	for key, rec := range s.enrollments {
		if key.courseID == course.ID {
			entries = append(entries, entry{key.userID, rec.seq})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	course = cloneCourse(course)
	course.StudentsEnrolled = make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		course.StudentsEnrolled = append(course.StudentsEnrolled, e.id)
	}
	return course
}

func cloneCourse(course models.Course) models.Course {
	sections := make([]models.Section, len(course.CourseContent))
	for i, section := range course.CourseContent {
		section.SubSections = append([]models.SubSection(nil), section.SubSections...)
		sections[i] = section
	}
	course.CourseContent = sections
	course.Tag = append(pq.StringArray(nil), course.Tag...)
	course.Instructions = append(pq.StringArray(nil), course.Instructions...)
	return course
}
