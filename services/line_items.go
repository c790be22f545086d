package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yashrajoria/storefront-backend/models"

	"github.com/stripe/stripe-go/v80"
)

// ErrUnrecognizedLineItems marks a session payload whose line items are
// present in neither known shape. Such deliveries are skipped, never guessed at.
var ErrUnrecognizedLineItems = errors.New("unrecognized line item shape")

// LineItemShape tags which variant of the session payload carried the items.
type LineItemShape int

const (
	ShapeUnrecognized LineItemShape = iota
	// ShapeDisplayItems is the legacy inline display_items array.
	ShapeDisplayItems
	// ShapeInlineLineItems is an expanded line_items list embedded in the session.
	ShapeInlineLineItems
	// ShapeFetchRequired means the payload only references the session and the
	// items must be listed from the processor.
	ShapeFetchRequired
)

func (s LineItemShape) String() string {
	switch s {
	case ShapeDisplayItems:
		return "display_items"
	case ShapeInlineLineItems:
		return "inline_line_items"
	case ShapeFetchRequired:
		return "fetch_required"
	default:
		return "unrecognized"
	}
}

// LineItemSource is the tagged union produced by ParseCompletedSession. Only
// the field matching Shape is set.
type LineItemSource struct {
	Shape        LineItemShape
	DisplayItems []displayItem
	LineItems    []*stripe.LineItem
	Reason       string
}

// CompletedSession is the part of a checkout.session.completed payload the
// reconciler needs.
type CompletedSession struct {
	ID            string
	CustomerEmail string
	PaymentStatus string
	Currency      string
	AmountTotal   *int64
	Items         LineItemSource
}

type displayItem struct {
	Amount   *int64 `json:"amount"`
	Currency string `json:"currency"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
	Custom   *struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Images      []string `json:"images"`
	} `json:"custom"`
	SKU *struct {
		Image      string            `json:"image"`
		Price      *int64            `json:"price"`
		Attributes map[string]string `json:"attributes"`
	} `json:"sku"`
}

type sessionPayload struct {
	ID              string  `json:"id"`
	CustomerEmail   *string `json:"customer_email"`
	CustomerDetails *struct {
		Email *string `json:"email"`
	} `json:"customer_details"`
	AmountTotal   *int64          `json:"amount_total"`
	Currency      string          `json:"currency"`
	PaymentStatus string          `json:"payment_status"`
	DisplayItems  json.RawMessage `json:"display_items"`
	LineItems     json.RawMessage `json:"line_items"`
}

// ParseCompletedSession decodes the session object of a verified event and
// classifies its line item shape. Expanded line_items take precedence over
// display_items when a payload carries both.
func ParseCompletedSession(raw []byte) (*CompletedSession, error) {
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if p.ID == "" {
		return nil, errors.New("checkout session has no id")
	}

	sess := &CompletedSession{
		ID:            p.ID,
		PaymentStatus: p.PaymentStatus,
		Currency:      strings.ToLower(p.Currency),
		AmountTotal:   p.AmountTotal,
	}
	if p.CustomerEmail != nil && *p.CustomerEmail != "" {
		sess.CustomerEmail = models.NormalizeEmail(*p.CustomerEmail)
	} else if p.CustomerDetails != nil && p.CustomerDetails.Email != nil {
		sess.CustomerEmail = models.NormalizeEmail(*p.CustomerDetails.Email)
	}

	switch {
	case present(p.LineItems):
		sess.Items = classifyLineItems(p.LineItems)
	case present(p.DisplayItems):
		sess.Items = classifyDisplayItems(p.DisplayItems)
	default:
		sess.Items = LineItemSource{Shape: ShapeFetchRequired}
	}
	return sess, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func unrecognized(format string, args ...interface{}) LineItemSource {
	return LineItemSource{Shape: ShapeUnrecognized, Reason: fmt.Sprintf(format, args...)}
}

func classifyDisplayItems(raw json.RawMessage) LineItemSource {
	var items []displayItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return unrecognized("display_items is not a list of items: %v", err)
	}
	if len(items) == 0 {
		return LineItemSource{Shape: ShapeFetchRequired}
	}
	return LineItemSource{Shape: ShapeDisplayItems, DisplayItems: items}
}

// classifyLineItems accepts a list object ({"object":"list","data":[...]}) or a bare array.
func classifyLineItems(raw json.RawMessage) LineItemSource {
	trimmed := bytes.TrimSpace(raw)

	var items []*stripe.LineItem
	switch trimmed[0] {
	case '{':
		var list stripe.LineItemList
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return unrecognized("line_items object does not decode: %v", err)
		}
		if list.Data == nil {
			return unrecognized("line_items object has no data list")
		}
		items = list.Data
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return unrecognized("line_items array does not decode: %v", err)
		}
	default:
		return unrecognized("line_items is neither a list object nor an array")
	}

	if len(items) == 0 {
		return LineItemSource{Shape: ShapeFetchRequired}
	}
	return LineItemSource{Shape: ShapeInlineLineItems, LineItems: items}
}

// ResolveLineItems normalizes src into order line items. A fetch-required
// source is listed through fetcher; any fetch error is returned as is so the
// caller can withhold acknowledgment.
func ResolveLineItems(ctx context.Context, src LineItemSource, sessionID string, fetcher LineItemFetcher) ([]models.OrderLineItem, error) {
	switch src.Shape {
	case ShapeDisplayItems:
		return fromDisplayItems(src.DisplayItems)
	case ShapeInlineLineItems:
		return fromStripeLineItems(src.LineItems)
	case ShapeFetchRequired:
		fetched, err := fetcher.ListSessionLineItems(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			return nil, fmt.Errorf("%w: session %s has no line items", ErrUnrecognizedLineItems, sessionID)
		}
		return fromStripeLineItems(fetched)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedLineItems, src.Reason)
	}
}

func fromDisplayItems(items []displayItem) ([]models.OrderLineItem, error) {
	out := make([]models.OrderLineItem, 0, len(items))
	for i, it := range items {
		var (
			title  string
			amount *int64
			image  string
		)
		switch {
		case it.Custom != nil:
			title, amount = it.Custom.Name, it.Amount
			if len(it.Custom.Images) > 0 {
				image = it.Custom.Images[0]
			}
		case it.SKU != nil:
			title, image = it.SKU.Attributes["name"], it.SKU.Image
			amount = it.Amount
			if amount == nil {
				amount = it.SKU.Price
			}
		default:
			return nil, fmt.Errorf("%w: display_items[%d] has type %q", ErrUnrecognizedLineItems, i, it.Type)
		}

		li, err := canonicalLineItem(i, title, amount, it.Quantity, image)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, nil
}

func fromStripeLineItems(items []*stripe.LineItem) ([]models.OrderLineItem, error) {
	out := make([]models.OrderLineItem, 0, len(items))
	for i, it := range items {
		if it == nil {
			return nil, fmt.Errorf("%w: line_items[%d] is null", ErrUnrecognizedLineItems, i)
		}

		title := it.Description
		var image string
		var amount *int64
		if it.Price != nil {
			if it.Price.Product != nil {
				if it.Price.Product.Name != "" {
					title = it.Price.Product.Name
				}
				if len(it.Price.Product.Images) > 0 {
					image = it.Price.Product.Images[0]
				}
			}
			unit := it.Price.UnitAmount
			amount = &unit
		} else if it.Quantity > 0 && it.AmountSubtotal%it.Quantity == 0 {
			unit := it.AmountSubtotal / it.Quantity
			amount = &unit
		}

		li, err := canonicalLineItem(i, title, amount, it.Quantity, image)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, nil
}

func canonicalLineItem(i int, title string, unitAmount *int64, quantity int64, image string) (models.OrderLineItem, error) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return models.OrderLineItem{}, fmt.Errorf("%w: item %d has no name", ErrUnrecognizedLineItems, i)
	case unitAmount == nil || *unitAmount < 0:
		return models.OrderLineItem{}, fmt.Errorf("%w: item %d has no usable unit amount", ErrUnrecognizedLineItems, i)
	case quantity <= 0:
		return models.OrderLineItem{}, fmt.Errorf("%w: item %d has quantity %d", ErrUnrecognizedLineItems, i, quantity)
	}
	return models.OrderLineItem{
		Title:     title,
		UnitPrice: FromMinorUnits(*unitAmount),
		Quantity:  quantity,
		ImageURL:  image,
	}, nil
}
