package models

import "github.com/google/uuid"

// CourseStats is one row of the instructor dashboard.
type CourseStats struct {
	ID                    uuid.UUID `json:"id"`
	CourseName            string    `json:"courseName"`
	CourseDescription     string    `json:"courseDescription"`
	TotalStudentsEnrolled int       `json:"totalStudentsEnrolled"`
	TotalAmountGenerated  float64   `json:"totalAmountGenerated"`
}

// EnrolledCourse is a course as seen by one of its students.
type EnrolledCourse struct {
	Course
	TotalDuration      string  `json:"totalDuration"`
	ProgressPercentage float64 `json:"progressPercentage"`
}
