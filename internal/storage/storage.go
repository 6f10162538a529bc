package storage

import (
	"context"

	"codebase-consultant/internal/domain"
)

// Repository Storage interface
type Repository interface {
	SaveConsultation(ctx context.Context, record *domain.Consultation) error
	GetConsultation(ctx context.Context, id string) (*domain.Consultation, error)
	ListRecentConsultations(ctx context.Context, limit int) ([]*domain.Consultation, error)
	Close() error
}
