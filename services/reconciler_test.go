package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	"github.com/yashrajoria/storefront-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

func eventPayload(t *testing.T, id, eventType, session string) []byte {
	t.Helper()
	event := map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"created":     time.Now().Unix(),
		"data":        map[string]json.RawMessage{"object": json.RawMessage(session)},
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return b
}

type reconcilerFixture struct {
	reconciler *Reconciler
	orders     *repository.MemoryOrderRepository
	fetcher    *fakeFetcher
	publisher  *recordingPublisher
}

func newReconcilerFixture(orders repository.OrderRepo) *reconcilerFixture {
	mem, _ := orders.(*repository.MemoryOrderRepository)
	if orders == nil {
		mem = repository.NewMemoryOrderRepository()
		orders = mem
	}
	f := &reconcilerFixture{
		orders:    mem,
		fetcher:   &fakeFetcher{items: fetchedWidgetItems()},
		publisher: &recordingPublisher{},
	}
	f.reconciler = NewReconciler(
		NewStripeClient("sk_test_123", testWebhookSecret),
		f.fetcher,
		orders,
		ReconcilerOptions{FetchTimeout: 50 * time.Millisecond, Publisher: f.publisher},
		zap.NewNop(),
	)
	return f
}

func (f *reconcilerFixture) deliver(payload []byte) ReconcileResult {
	return f.reconciler.HandleDelivery(context.Background(), payload, signPayload(testWebhookSecret, payload))
}

func TestReconcilerMaterializesOrder(t *testing.T) {
	f := newReconcilerFixture(nil)

	res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession))
	require.Equal(t, OutcomeReconciled, res.Outcome, "%v", res.Err)
	assert.Equal(t, "cs_fetch", res.SessionID)

	order, err := f.orders.FindBySessionID(context.Background(), "cs_fetch")
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, order.ID)
	assert.Equal(t, "a@b.com", order.CustomerEmail)
	assert.Equal(t, "20.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "evt_1", order.SourceEventID)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "Widget", order.LineItems[0].Title)

	require.Len(t, f.publisher.Published(), 1)
	assert.Equal(t, order.ID, f.publisher.Published()[0].ID)
}

func TestReconcilerRedeliveryIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(nil)
	payload := eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession)

	first := f.deliver(payload)
	second := f.deliver(payload)

	assert.Equal(t, OutcomeReconciled, first.Outcome)
	assert.Equal(t, OutcomeAlreadyReconciled, second.Outcome)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.orders.Count())
	assert.Equal(t, 1, f.fetcher.Calls())
	assert.Len(t, f.publisher.Published(), 1)
}

func TestReconcilerConcurrentDeliveries(t *testing.T) {
	f := newReconcilerFixture(nil)
	payload := eventPayload(t, "evt_1", EventCheckoutCompleted, inlineLineItemsSession)

	const n = 16
	results := make([]ReconcileResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.deliver(payload)
		}(i)
	}
	wg.Wait()

	reconciled := 0
	for _, res := range results {
		switch res.Outcome {
		case OutcomeReconciled:
			reconciled++
		case OutcomeAlreadyReconciled:
		default:
			t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
		}
	}
	assert.Equal(t, 1, reconciled)
	assert.Equal(t, 1, f.orders.Count())
}

func TestReconcilerTotalFromLineItems(t *testing.T) {
	f := newReconcilerFixture(nil)
	f.fetcher.items = []*stripe.LineItem{{
		Description: "Widget",
		Quantity:    3,
		Price:       &stripe.Price{UnitAmount: 1999, Product: &stripe.Product{ID: "prod_1", Name: "Widget"}},
	}}
	session := `{"id":"cs_no_total","customer_email":"a@b.com","payment_status":"paid"}`

	res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, session))
	require.Equal(t, OutcomeReconciled, res.Outcome)

	order, err := f.orders.FindBySessionID(context.Background(), "cs_no_total")
	require.NoError(t, err)
	assert.Equal(t, "59.97", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "19.99", order.LineItems[0].UnitPrice.StringFixed(2))
}

func TestReconcilerOutcomes(t *testing.T) {
	t.Run("bad signature is rejected", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		payload := eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession)

		res := f.reconciler.HandleDelivery(context.Background(), payload, signPayload("whsec_other", payload))
		assert.Equal(t, OutcomeRejected, res.Outcome)
		assert.False(t, res.Outcome.Acknowledged())
		assert.Zero(t, f.orders.Count())
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		payload := eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession)
		sig := signPayload(testWebhookSecret, payload)
		payload[len(payload)-2] = ' '

		res := f.reconciler.HandleDelivery(context.Background(), payload, sig)
		assert.Equal(t, OutcomeRejected, res.Outcome)
	})

	t.Run("unknown event type is ignored", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		res := f.deliver(eventPayload(t, "evt_1", "payment_intent.created", `{"id":"pi_1"}`))
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.True(t, res.Outcome.Acknowledged())
		assert.Zero(t, f.fetcher.Calls())
	})

	t.Run("missing email is ignored", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, `{"id":"cs_1","payment_status":"paid"}`))
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.Zero(t, f.orders.Count())
	})

	t.Run("unrecognized shape is ignored", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, `{"id":"cs_1","customer_email":"a@b.com","display_items":"Widget"}`))
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.Zero(t, f.orders.Count())
	})

	t.Run("pending async payment waits for confirmation", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		pending := `{"id":"cs_async","customer_email":"a@b.com","payment_status":"unpaid"}`
		paid := `{"id":"cs_async","customer_email":"a@b.com","payment_status":"paid"}`

		assert.Equal(t, OutcomeIgnored, f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, pending)).Outcome)
		assert.Equal(t, OutcomeReconciled, f.deliver(eventPayload(t, "evt_2", EventCheckoutAsyncPaymentSucceed, paid)).Outcome)
		assert.Equal(t, 1, f.orders.Count())
	})

	t.Run("fetch failure fails", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		f.fetcher.err = errors.New("stripe unavailable")

		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession))
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.False(t, res.Outcome.Acknowledged())
		assert.Zero(t, f.orders.Count())
	})

	t.Run("fetch timeout fails", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		f.fetcher.block = true

		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, fetchRequiredSession))
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	})

	t.Run("store failure fails", func(t *testing.T) {
		f := newReconcilerFixture(&failingOrderRepo{err: errors.New("connection refused")})
		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, inlineLineItemsSession))
		assert.Equal(t, OutcomeFailed, res.Outcome)
	})

	t.Run("publish failure does not change outcome", func(t *testing.T) {
		f := newReconcilerFixture(nil)
		f.publisher.err = errors.New("sns down")
		res := f.deliver(eventPayload(t, "evt_1", EventCheckoutCompleted, displayItemsSession))
		assert.Equal(t, OutcomeReconciled, res.Outcome)
		assert.Equal(t, 1, f.orders.Count())
	})
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeReconciled:        "reconciled",
		OutcomeAlreadyReconciled: "already_reconciled",
		OutcomeIgnored:           "ignored",
		OutcomeRejected:          "rejected",
		OutcomeFailed:            "failed",
	} {
		assert.Equal(t, want, o.String(), fmt.Sprint(int(o)))
	}
}

// failingOrderRepo reports no existing order and fails every insert.
type failingOrderRepo struct{ err error }

func (r *failingOrderRepo) InsertIfAbsent(context.Context, *models.Order) (bool, error) {
	return false, r.err
}

func (r *failingOrderRepo) FindBySessionID(context.Context, string) (*models.Order, error) {
	return nil, repository.ErrNotFound
}

func (r *failingOrderRepo) FindByCustomerEmail(context.Context, string) ([]models.Order, error) {
	return nil, r.err
}

func (r *failingOrderRepo) EnsureIndexes(context.Context) error { return nil }

func TestReconciledOrderVisibleRegardlessOfEmailCase(t *testing.T) {
	f := newReconcilerFixture(nil)
	session := `{"id":"cs_case","object":"checkout.session","customer_email":"Ada@Example.COM","payment_status":"paid","amount_total":2000,"currency":"usd"}`

	res := f.deliver(eventPayload(t, "evt_case", EventCheckoutCompleted, session))
	require.Equal(t, OutcomeReconciled, res.Outcome, "%v", res.Err)

	orders := NewOrderService(f.orders)
	listed, err := orders.ListForCustomer(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "ada@example.com", listed[0].CustomerEmail)

	listed, err = orders.ListForCustomer(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = orders.GetForSession(context.Background(), "Ada@Example.com", "cs_case")
	assert.NoError(t, err)
}
