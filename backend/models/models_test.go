package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCourseContentHelpers(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	course := &Course{CourseContent: []Section{
		{SubSections: []SubSection{{Base: Base{ID: a}}, {Base: Base{ID: b}}}},
		{SubSections: []SubSection{{Base: Base{ID: c}}}},
		{},
	}}

	assert.Equal(t, 3, course.SubSectionCount())
	assert.True(t, course.HasSubSection(c))
	assert.False(t, course.HasSubSection(uuid.New()))
}

func TestProgressCompletedInIgnoresRemovedContent(t *testing.T) {
	kept := uuid.New()
	course := &Course{CourseContent: []Section{{SubSections: []SubSection{{Base: Base{ID: kept}}}}}}
	progress := &CourseProgress{CompletedVideos: []string{kept.String(), uuid.NewString(), "garbage"}}

	assert.Equal(t, 1, progress.CompletedIn(course))
	assert.True(t, progress.HasCompleted(kept))

	var missing *CourseProgress
	assert.Equal(t, 0, missing.CompletedIn(course))
}

func TestOTPExpiry(t *testing.T) {
	now := time.Now()
	otp := OTP{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, otp.Expired(now))
	assert.True(t, otp.Expired(now.Add(time.Minute)))
}

func TestRoleAndStatusValidation(t *testing.T) {
	assert.True(t, RoleInstructor.Valid())
	assert.False(t, Role("Guest").Valid())
	assert.True(t, StatusPublished.Valid())
	assert.False(t, CourseStatus("Archived").Valid())
}
