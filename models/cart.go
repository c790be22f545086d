package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a client-side cart. It only lives for the duration
// of a checkout request.
type CartItem struct {
	ProductID string `json:"product_id,omitempty"`
	Title     string `json:"title" validate:"required"`
	// UnitPrice is nil when the client sent no price.
	UnitPrice *decimal.Decimal `json:"price" validate:"required"`
	Quantity  int64            `json:"quantity" validate:"gt=0"`
	ImageURL  string           `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UnmarshalJSON also accepts the price under "unitPrice".
func (c *CartItem) UnmarshalJSON(data []byte) error {
	type plain CartItem
	aux := struct {
		*plain
		AltUnitPrice *decimal.Decimal `json:"unitPrice"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.UnitPrice == nil {
		c.UnitPrice = aux.AltUnitPrice
	}
	return nil
}
