package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Address is the postal address of a student.
type Address struct {
	Street  string `gorm:"size:255" json:"street"`
	City    string `gorm:"size:120" json:"city"`
	State   string `gorm:"size:120" json:"state"`
	Pincode string `gorm:"size:6" json:"pincode"`
}

// Guardian holds the parent or guardian contact for a student.
type Guardian struct {
	Name         string `gorm:"size:255" json:"name"`
	Relationship string `gorm:"size:64" json:"relationship"`
	Phone        string `gorm:"size:10" json:"phone"`
	Email        string `gorm:"size:255" json:"email"`
}

// Student represents a learner who can request counseling sessions.
type Student struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	StudentCode           string         `gorm:"size:16;uniqueIndex" json:"studentId"`
	FirstName             string         `gorm:"size:50;not null" json:"firstName"`
	LastName              string         `gorm:"size:50" json:"lastName"`
	Email                 string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone                 string         `gorm:"size:10" json:"phone"`
	DateOfBirth           *time.Time     `json:"dateOfBirth"`
	Gender                string         `gorm:"size:16" json:"gender"`
	Address               Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CurrentClass          string         `gorm:"size:64;index" json:"currentClass"`
	School                string         `gorm:"size:255" json:"school"`
	Board                 string         `gorm:"size:32" json:"board"`
	Subjects              datatypes.JSON `json:"subjects"`
	Interests             datatypes.JSON `json:"interests"`
	CareerGoals           string         `gorm:"type:text" json:"careerGoals"`
	RiskLevel             string         `gorm:"size:16;not null;default:Low;index" json:"riskLevel"`
	TotalAppointments     int            `gorm:"not null;default:0" json:"totalAppointments"`
	CompletedAppointments int            `gorm:"not null;default:0" json:"completedAppointments"`
	LastAppointmentDate   *time.Time     `json:"lastAppointmentDate"`
	SpecialNeeds          string         `gorm:"type:text" json:"specialNeeds"`
	Guardian              Guardian       `gorm:"embedded;embeddedPrefix:guardian_" json:"guardian"`
	PasswordHash          string         `gorm:"size:255" json:"-"`
	Role                  string         `gorm:"size:16;not null;default:student" json:"role"`
	Status                string         `gorm:"size:16;not null;default:Active;index" json:"status"`
	IsActive              bool           `gorm:"not null;default:true" json:"isActive"`
	ProfileComplete       bool           `gorm:"not null;default:false" json:"profileComplete"`
	LastLogin             *time.Time     `json:"lastLogin"`
	CreatedAt             time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`

	Notes []CounselingNote `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// FullName joins the first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HasCompletedProfile reports whether the fields collected at profile setup are present.
func (s Student) HasCompletedProfile() bool {
	return s.Phone != "" &&
		s.DateOfBirth != nil &&
		s.Gender != "" &&
		s.CurrentClass != "" &&
		s.School != ""
}

// CounselingNote is a free-text note an admin attaches to a student record.
type CounselingNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;index" json:"studentId"`
	AdminID   uint      `gorm:"not null" json:"adminId"`
	Notes     string    `gorm:"type:text;not null" json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}
