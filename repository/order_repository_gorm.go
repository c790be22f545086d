package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/storefront-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository stores orders in Postgres. The unique index on
// source_session_id backs an INSERT ... ON CONFLICT DO NOTHING.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_session_id"}},
			DoNothing: true,
		}).
		Create(order)
	if res.Error != nil {
		return false, fmt.Errorf("insert order for session %s: %w", order.SourceSessionID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("source_session_id = ?", sessionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order for session %s: %w", sessionID, err)
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByCustomerEmail(ctx context.Context, email string) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return orders, nil
}

func (r *GormOrderRepository) EnsureIndexes(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.Order{})
}
