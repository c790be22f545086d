package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/yashrajoria/storefront-backend/models"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v80"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header for payload at time now.
func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type MockCheckoutGateway struct{ mock.Mock }

func (m *MockCheckoutGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*CheckoutSessionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeFetcher returns items or err and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	items []*stripe.LineItem
	err   error
	calls int
	block bool
}

func (f *fakeFetcher) ListSessionLineItems(ctx context.Context, _ string) ([]*stripe.LineItem, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items, f.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Published() []*models.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.Order(nil), p.orders...)
}
