package dto

// AppointmentEmailRequest is the body of the confirmation and reminder email endpoints.
type AppointmentEmailRequest struct {
	AppointmentID uint   `json:"appointmentId" validate:"required,gt=0"`
	CustomMessage string `json:"customMessage" validate:"omitempty,max=2000"`
}

// FollowUpEmailRequest is the body of POST /email/follow-up.
type FollowUpEmailRequest struct {
	StudentID     uint   `json:"studentId" validate:"required,gt=0"`
	AppointmentID *uint  `json:"appointmentId" validate:"omitempty,gt=0"`
	Subject       string `json:"subject" validate:"required,max=200"`
	Message       string `json:"message" validate:"required,max=5000"`
}

// EmailDispatchResponse reports the outcome of one notification attempt.
type EmailDispatchResponse struct {
	DeliveryID uint   `json:"deliveryId"`
	Kind       string `json:"kind"`
	Recipient  string `json:"recipient"`
	Delivered  bool   `json:"delivered"`
	Error      string `json:"error,omitempty"`
}

// EmailTransportStatus is returned by POST /email/test.
type EmailTransportStatus struct {
	Transport string `json:"transport"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
}
