package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CourseStatus string

const (
	StatusDraft     CourseStatus = "Draft"
	StatusPublished CourseStatus = "Published"
)

func (s CourseStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Course struct {
	Base
	CourseName        string            `gorm:"not null" json:"courseName"`
	CourseDescription string            `json:"courseDescription"`
	WhatYouWillLearn  string            `json:"whatYouWillLearn"`
	Price             float64           `gorm:"type:numeric(12,2);not null" json:"price"`
	Thumbnail         string            `json:"thumbnail"`
	Tag               pq.StringArray    `gorm:"type:text[]" json:"tag"`
	Instructions      pq.StringArray    `gorm:"type:text[]" json:"instructions"`
	Status            CourseStatus      `gorm:"type:varchar(16);not null;default:Draft" json:"status"`
	InstructorID      uuid.UUID         `gorm:"type:uuid;index;not null" json:"instructorId"`
	Instructor        *User             `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	CategoryID        uuid.UUID         `gorm:"type:uuid;index" json:"categoryId"`
	Category          *Category         `json:"category,omitempty"`
	CourseContent     []Section         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"courseContent"`
	RatingAndReviews  []RatingAndReview `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"ratingAndReviews,omitempty"`

	// StudentsEnrolled is read from the enrollment relation, never stored on the row.
	StudentsEnrolled []uuid.UUID `gorm:"-" json:"studentsEnrolled"`
}

// SubSectionCount is the number of content units across every section.
func (c *Course) SubSectionCount() int {
	n := 0
	for _, s := range c.CourseContent {
		n += len(s.SubSections)
	}
	return n
}

// HasSubSection reports whether id belongs to any section of the course.
func (c *Course) HasSubSection(id uuid.UUID) bool {
	for _, s := range c.CourseContent {
		for _, ss := range s.SubSections {
			if ss.ID == id {
				return true
			}
		}
	}
	return false
}

type Category struct {
	Base
	Name        string   `gorm:"uniqueIndex;not null" json:"name"`
	Description string   `json:"description"`
	Courses     []Course `gorm:"foreignKey:CategoryID" json:"courses,omitempty"`
}

type Section struct {
	Base
	CourseID    uuid.UUID    `gorm:"type:uuid;index;not null" json:"courseId"`
	SectionName string       `gorm:"not null" json:"sectionName"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	SubSections []SubSection `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"subSection"`
}

type SubSection struct {
	Base
	SectionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sectionId"`
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `json:"description"`
	TimeDuration string    `json:"timeDuration"`
	VideoURL     string    `json:"videoUrl"`
	Position     int       `gorm:"not null;default:0" json:"position"`
}

// Enrollment is the single row behind both User.Courses and Course.StudentsEnrolled.
type Enrollment struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Enrollment) TableName() string { return "course_enrollments" }

type RatingAndReview struct {
	Base
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_course" json:"userId"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_course" json:"courseId"`
	Course   *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Rating   float64   `gorm:"not null;check:rating >= 0 AND rating <= 5" json:"rating"`
	Review   string    `gorm:"not null" json:"review"`
}
