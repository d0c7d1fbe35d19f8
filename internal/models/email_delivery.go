package models

import "time"

// EmailDelivery records one attempt to send a notification email.
type EmailDelivery struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Kind          string    `gorm:"size:32;not null;index" json:"kind"`
	Recipient     string    `gorm:"size:255;not null" json:"recipient"`
	Subject       string    `gorm:"size:255;not null" json:"subject"`
	StudentID     *uint     `gorm:"index" json:"studentId"`
	AppointmentID *uint     `gorm:"index" json:"appointmentId"`
	Status        string    `gorm:"size:16;not null;index" json:"status"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	SentBy        *uint     `json:"sentBy"`
	CreatedAt     time.Time `json:"createdAt"`
}
