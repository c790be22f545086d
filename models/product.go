package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Price       decimal.Decimal    `json:"price" bson:"price"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Category    string             `json:"category,omitempty" bson:"category,omitempty"`
	Images      []string           `json:"images" bson:"images"`
	Stock       int                `json:"stock" bson:"stock"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type ProductCreateRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"max=100"`
	Images      []string        `json:"images" validate:"dive,url"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// ProductUpdateRequest carries a partial update; nil fields are left untouched.
type ProductUpdateRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}
