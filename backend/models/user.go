package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent    Role = "Student"
	RoleInstructor Role = "Instructor"
	RoleAdmin      Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Base replaces gorm.Model with a UUID key assigned on first insert.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type User struct {
	Base
	FirstName         string     `gorm:"not null" json:"firstName"`
	LastName          string     `gorm:"not null" json:"lastName"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	Password          string     `gorm:"not null" json:"-"`
	AccountType       Role       `gorm:"type:varchar(16);not null;default:Student" json:"accountType"`
	Active            bool       `gorm:"default:true" json:"active"`
	Approved          bool       `gorm:"not null" json:"approved"`
	Image             string     `json:"image"`
	ResetToken        string     `gorm:"index" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	Profile           *Profile   `gorm:"constraint:OnDelete:CASCADE" json:"additionalDetails,omitempty"`

	// Courses is read from the enrollment relation, never stored on the row.
	Courses []uuid.UUID `gorm:"-" json:"courses"`
}

type Profile struct {
	Base
	UserID        uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	Gender        string          `json:"gender"`
	DateOfBirth   *datatypes.Date `json:"dateOfBirth"`
	About         string          `json:"about"`
	ContactNumber string          `json:"contactNumber"`
}

// OTP is a one-time signup code sent by email.
type OTP struct {
	Base
	Email     string    `gorm:"index;not null" json:"email"`
	Code      string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

func (o OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
