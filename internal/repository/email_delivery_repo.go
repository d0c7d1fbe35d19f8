package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/models"
)

// EmailDeliveryRepository stores notification attempts.
type EmailDeliveryRepository interface {
	Create(ctx context.Context, delivery *models.EmailDelivery) error
	ListByAppointment(ctx context.Context, appointmentID uint) ([]models.EmailDelivery, error)
}

type emailDeliveryRepository struct {
	db *gorm.DB
}

// NewEmailDeliveryRepository constructs the delivery log repository.
func NewEmailDeliveryRepository(db *gorm.DB) EmailDeliveryRepository {
	return &emailDeliveryRepository{db: db}
}

func (r *emailDeliveryRepository) Create(ctx context.Context, delivery *models.EmailDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *emailDeliveryRepository) ListByAppointment(ctx context.Context, appointmentID uint) ([]models.EmailDelivery, error) {
	var deliveries []models.EmailDelivery
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at DESC").
		Find(&deliveries).Error
	return deliveries, err
}
