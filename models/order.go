package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

type OrderLineItem struct {
	Title     string          `json:"title" bson:"title"`
	UnitPrice decimal.Decimal `json:"unit_price" bson:"unit_price"`
	Quantity  int64           `json:"quantity" bson:"quantity"`
	ImageURL  string          `json:"image_url,omitempty" bson:"image_url,omitempty"`
}

// Subtotal is UnitPrice * Quantity.
func (li OrderLineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// Order is materialized once per completed checkout session and never updated.
// SourceSessionID is unique across the orders collection.
type Order struct {
	ID              string          `json:"id" bson:"_id" gorm:"type:uuid;primaryKey"`
	CustomerEmail   string          `json:"customer_email" bson:"customer_email" gorm:"type:varchar(320);not null;index:idx_orders_customer_created,priority:1"`
	LineItems       []OrderLineItem `json:"line_items" bson:"line_items" gorm:"type:jsonb;serializer:json;not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" bson:"total_amount" gorm:"type:numeric(12,2);not null"`
	Currency        string          `json:"currency" bson:"currency" gorm:"type:varchar(3);not null"`
	PaymentStatus   string          `json:"payment_status" bson:"payment_status" gorm:"type:varchar(32);not null"`
	SourceSessionID string          `json:"source_session_id" bson:"source_session_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	SourceEventID   string          `json:"source_event_id,omitempty" bson:"source_event_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at" gorm:"not null;index:idx_orders_customer_created,priority:2,sort:desc"`
}
