package repository

import (
	"context"
	"errors"

	"github.com/yashrajoria/storefront-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// ProductRepo defines the catalog operations behind the product routes.
type ProductRepo interface {
	Find(ctx context.Context, limit, skip int64) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepo defines the operations behind the user routes.
type UserRepo interface {
	FindAll(ctx context.Context) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateIfAbsent inserts user unless one with the same email exists and
	// reports whether it did.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	Upsert(ctx context.Context, email string, updates map[string]interface{}) error
	EnsureIndexes(ctx context.Context) error
}

// OrderRepo is the order store used by the reconciler and the order routes.
// Every implementation makes InsertIfAbsent atomic on SourceSessionID, so two
// concurrent deliveries of one session can never both insert.
type OrderRepo interface {
	// InsertIfAbsent returns false, nil when an order for the session already exists.
	InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	// FindByCustomerEmail returns the customer's orders, newest first.
	FindByCustomerEmail(ctx context.Context, email string) ([]models.Order, error)
	EnsureIndexes(ctx context.Context) error
}
