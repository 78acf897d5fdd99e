package repository

import (
	"context"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindPagos is the shared split lookup for "multiple"-method sales:
	// every call site that needs a split resolves it through here.
	FindPagos(ctx context.Context, ventaID uuid.UUID) ([]model.VentaPago, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Pagos").First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) FindPagos(ctx context.Context, ventaID uuid.UUID) ([]model.VentaPago, error) {
	var pagos []model.VentaPago
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).Find(&pagos).Error
	return pagos, err
}
