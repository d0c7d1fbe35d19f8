package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppointmentDetails holds the scheduling attributes of an appointment.
type AppointmentDetails struct {
	RequestedDate time.Time  `gorm:"not null;index" json:"requestedDate"`
	RequestedTime string     `gorm:"size:16;not null" json:"requestedTime"`
	ConfirmedDate *time.Time `json:"confirmedDate"`
	ConfirmedTime string     `gorm:"size:16" json:"confirmedTime"`
	Duration      int        `gorm:"not null;default:60" json:"duration"`
	Type          string     `gorm:"size:64;not null;index" json:"type"`
	Mode          string     `gorm:"size:32;not null" json:"mode"`
	Priority      string     `gorm:"size:16;not null;default:Medium;index" json:"priority"`
}

// SessionNotes captures what happened during a session.
type SessionNotes struct {
	PreSessionNotes  string         `gorm:"type:text" json:"preSessionNotes"`
	SessionSummary   string         `gorm:"type:text" json:"sessionSummary"`
	ActionItems      datatypes.JSON `json:"actionItems"`
	FollowUpRequired bool           `gorm:"not null;default:false" json:"followUpRequired"`
	FollowUpDate     *time.Time     `json:"followUpDate"`
	Recommendations  string         `gorm:"type:text" json:"recommendations"`
	NextSteps        string         `gorm:"type:text" json:"nextSteps"`
}

// Communication tracks which notifications went out for an appointment.
type Communication struct {
	EmailSent            bool       `gorm:"not null;default:false" json:"emailSent"`
	EmailSentDate        *time.Time `json:"emailSentDate"`
	ReminderSent         bool       `gorm:"not null;default:false" json:"reminderSent"`
	ReminderSentDate     *time.Time `json:"reminderSentDate"`
	ConfirmationSent     bool       `gorm:"not null;default:false" json:"confirmationSent"`
	ConfirmationSentDate *time.Time `json:"confirmationSentDate"`
}

// Feedback stores post-session ratings from both sides.
type Feedback struct {
	StudentRating      *int   `json:"studentRating"`
	StudentComments    string `gorm:"type:text" json:"studentComments"`
	CounsellorRating   *int   `json:"counsellorRating"`
	CounsellorComments string `gorm:"type:text" json:"counsellorComments"`
}

// Appointment is a counseling session requested by or for a student.
type Appointment struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	StudentID       uint               `gorm:"not null;index" json:"studentId"`
	Student         Student            `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student"`
	CounsellorID    *uint              `gorm:"index" json:"counsellorId"`
	Counsellor      *Admin             `gorm:"foreignKey:CounsellorID;constraint:OnDelete:SET NULL" json:"counsellor,omitempty"`
	Details         AppointmentDetails `gorm:"embedded" json:"appointmentDetails"`
	Reason          string             `gorm:"size:500;not null" json:"reason"`
	StudentConcerns string             `gorm:"size:1000" json:"studentConcerns"`
	Status          AppointmentStatus  `gorm:"size:16;not null;default:Pending;index" json:"status"`
	SessionNotes    SessionNotes       `gorm:"embedded;embeddedPrefix:notes_" json:"sessionNotes"`
	Communication   Communication      `gorm:"embedded" json:"communication"`
	Feedback        Feedback           `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`
	RequestedBy     string             `gorm:"size:16;not null;default:Student" json:"requestedBy"`
	UrgencyLevel    string             `gorm:"size:16;not null;default:Normal" json:"urgencyLevel"`
	Version         int                `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time          `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time          `gorm:"index" json:"updatedAt"`
}

// IsConfirmed reports whether both confirmation fields are set.
func (a Appointment) IsConfirmed() bool {
	return a.Details.ConfirmedDate != nil && a.Details.ConfirmedTime != ""
}

// EffectiveDate is the confirmed date when present, otherwise the requested one.
func (a Appointment) EffectiveDate() time.Time {
	if a.Details.ConfirmedDate != nil {
		return *a.Details.ConfirmedDate
	}
	return a.Details.RequestedDate
}
