package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderEventCreated = "order.created"

// OrderEvent is published after an order has been materialized.
type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	SessionID     string          `json:"session_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	ItemCount     int             `json:"item_count"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewOrderCreatedEvent(order *Order) OrderEvent {
	return OrderEvent{
		Type:          OrderEventCreated,
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		SessionID:     order.SourceSessionID,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		ItemCount:     len(order.LineItems),
		Timestamp:     time.Now().UTC(),
	}
}
