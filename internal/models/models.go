package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Admin{},
		&Student{},
		&CounselingNote{},
		&Appointment{},
		&EmailDelivery{},
		&ActivityLog{},
	}
}
