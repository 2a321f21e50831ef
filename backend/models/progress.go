package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CourseProgress struct {
	Base
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course" json:"userId"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course" json:"courseId"`
	CompletedVideos pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"completedVideos"`
}

func (p *CourseProgress) HasCompleted(subSectionID uuid.UUID) bool {
	id := subSectionID.String()
	for _, v := range p.CompletedVideos {
		if v == id {
			return true
		}
	}
	return false
}

// CompletedIn counts completed ids that still belong to course.
func (p *CourseProgress) CompletedIn(course *Course) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, v := range p.CompletedVideos {
		id, err := uuid.Parse(v)
		if err == nil && course.HasSubSection(id) {
			n++
		}
	}
	return n
}
