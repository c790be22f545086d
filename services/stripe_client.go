package services

import (
	"context"
	"fmt"

	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeSignatureHeader carries the webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// PriceDescriptor is one processor-native checkout line.
type PriceDescriptor struct {
	Currency    string
	ProductName string
	ImageURL    string
	UnitAmount  int64 // minor units
	Quantity    int64
}

type CheckoutSessionRequest struct {
	CustomerEmail string
	LineItems     []PriceDescriptor
	SuccessURL    string
	CancelURL     string
}

type CheckoutSessionResult struct {
	SessionID string `json:"id"`
	URL       string `json:"url,omitempty"`
}

// CheckoutGateway creates hosted checkout sessions.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error)
}

// EventVerifier authenticates a raw webhook body against its signature header.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// LineItemFetcher loads the line items of a completed session when the event
// payload does not carry them inline.
type LineItemFetcher interface {
	ListSessionLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
}

// StripeClient implements the three processor collaborators over stripe-go.
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	return &StripeClient{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	params := &stripe.CheckoutSessionParams{
		CustomerEmail:      stripe.String(req.CustomerEmail),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, li := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.ProductName),
		}
		if li.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(li.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &CheckoutSessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyEvent checks the signature over the untouched payload bytes. Payloads
// from older API versions are accepted because both line item shapes are handled.
func (s *StripeClient) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, apperrors.Wrap(apperrors.ErrSignatureInvalid, err)
	}
	return event, nil
}

func (s *StripeClient) ListSessionLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	iter := s.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list line items for %s: %w", sessionID, err)
	}
	return items, nil
}
