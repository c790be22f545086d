package services

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"
	"github.com/yashrajoria/storefront-backend/pkg/logger"
	"github.com/yashrajoria/storefront-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

// Outcome is the terminal state of one webhook delivery.
type Outcome int

const (
	OutcomeReconciled Outcome = iota + 1
	OutcomeAlreadyReconciled
	OutcomeIgnored
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReconciled:
		return "reconciled"
	case OutcomeAlreadyReconciled:
		return "already_reconciled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Acknowledged reports whether the processor should stop redelivering.
func (o Outcome) Acknowledged() bool {
	return o == OutcomeReconciled || o == OutcomeAlreadyReconciled || o == OutcomeIgnored
}

// ReconcileResult describes what happened to a delivery.
type ReconcileResult struct {
	Outcome   Outcome
	EventID   string
	EventType string
	SessionID string
	OrderID   string
	Err       error
}

type Reconciler struct {
	verifier     EventVerifier
	fetcher      LineItemFetcher
	orders       repository.OrderRepo
	publisher    EventPublisher
	metrics      awspkg.MetricsRecorder
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

type ReconcilerOptions struct {
	FetchTimeout time.Duration
	Publisher    EventPublisher
	Metrics      awspkg.MetricsRecorder
}

func NewReconciler(verifier EventVerifier, fetcher LineItemFetcher, orders repository.OrderRepo, opts ReconcilerOptions, logger *zap.Logger) *Reconciler {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Publisher == nil {
		opts.Publisher = NoopEventPublisher{}
	}
	return &Reconciler{
		verifier:     verifier,
		fetcher:      fetcher,
		orders:       orders,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// HandleDelivery verifies and reconciles one webhook delivery. payload must be
// the exact bytes received.
func (r *Reconciler) HandleDelivery(ctx context.Context, payload []byte, sigHeader string) ReconcileResult {
	log := logger.With(ctx, r.logger)
	log.Debug("Webhook received", zap.Int("bytes", len(payload)))

	event, err := r.verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		recordCount(r.metrics, awspkg.MetricWebhookRejected, nil)
		log.Warn("Webhook signature verification failed", zap.Error(err))
		return ReconcileResult{Outcome: OutcomeRejected, Err: err}
	}

	res := ReconcileResult{EventID: event.ID, EventType: string(event.Type)}
	log = log.With(zap.String("event_id", event.ID), zap.String("event_type", res.EventType))
	log.Debug("Webhook signature verified")

	switch res.EventType {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentSucceed:
	default:
		recordCount(r.metrics, awspkg.MetricWebhookIgnored, map[string]string{"Reason": "event_type"})
		log.Debug("Ignoring unhandled event type")
		res.Outcome = OutcomeIgnored
		return res
	}
	if event.Data == nil {
		return r.ignore(log, res, "event has no data object")
	}

	sess, err := ParseCompletedSession(event.Data.Raw)
	if err != nil {
		log.Warn("Checkout session payload is malformed", zap.Error(err))
		return r.ignore(log, res, "malformed session")
	}
	res.SessionID = sess.ID
	log = log.With(zap.String("session_id", sess.ID), zap.Stringer("shape", sess.Items.Shape))
	log.Debug("Webhook classified")

	if sess.CustomerEmail == "" {
		log.Warn("Checkout session has no customer email")
		return r.ignore(log, res, "no customer email")
	}
	if res.EventType == EventCheckoutCompleted && sess.PaymentStatus == models.PaymentStatusUnpaid {
		log.Info("Checkout completed with payment pending, waiting for async confirmation")
		return r.ignore(log, res, "payment pending")
	}

	existing, err := r.orders.FindBySessionID(ctx, sess.ID)
	switch {
	case err == nil:
		recordCount(r.metrics, awspkg.MetricWebhookDuplicates, nil)
		log.Info("Order already reconciled", zap.String("order_id", existing.ID))
		res.Outcome, res.OrderID = OutcomeAlreadyReconciled, existing.ID
		return res
	case !errors.Is(err, repository.ErrNotFound):
		return r.fail(log, res, "order lookup failed", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	items, err := ResolveLineItems(fetchCtx, sess.Items, sess.ID, r.fetcher)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUnrecognizedLineItems) {
			log.Error("Line items could not be normalized, skipping delivery", zap.Error(err))
			return r.ignore(log, res, "unrecognized line items")
		}
		return r.fail(log, res, "line item fetch failed", err)
	}

	order := r.buildOrder(event.ID, sess, items)
	inserted, err := r.orders.InsertIfAbsent(ctx, order)
	if err != nil {
		return r.fail(log, res, "order insert failed", err)
	}
	if !inserted {
		recordCount(r.metrics, awspkg.MetricWebhookDuplicates, nil)
		log.Info("Order already reconciled by a concurrent delivery")
		res.Outcome = OutcomeAlreadyReconciled
		return res
	}

	res.Outcome, res.OrderID = OutcomeReconciled, order.ID
	recordCount(r.metrics, awspkg.MetricOrdersReconciled, nil)
	log.Info("Order reconciled",
		zap.String("order_id", order.ID),
		zap.String("customer_email", order.CustomerEmail),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("line_items", len(order.LineItems)),
	)

	pubCtx, pubCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer pubCancel()
	if err := r.publisher.PublishOrderCreated(pubCtx, order); err != nil {
		log.Warn("Failed to publish order event", zap.String("order_id", order.ID), zap.Error(err))
	}
	return res
}

func (r *Reconciler) buildOrder(eventID string, sess *CompletedSession, items []models.OrderLineItem) *models.Order {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	if sess.AmountTotal != nil {
		total = FromMinorUnits(*sess.AmountTotal)
	}

	currency := sess.Currency
	if currency == "" {
		currency = CheckoutCurrency
	}
	status := sess.PaymentStatus
	if status == "" {
		status = models.PaymentStatusPaid
	}

	return &models.Order{
		ID:              r.newID(),
		CustomerEmail:   sess.CustomerEmail,
		LineItems:       items,
		TotalAmount:     total,
		Currency:        currency,
		PaymentStatus:   status,
		SourceSessionID: sess.ID,
		SourceEventID:   eventID,
		CreatedAt:       r.now().UTC(),
	}
}

func (r *Reconciler) ignore(log *zap.Logger, res ReconcileResult, reason string) ReconcileResult {
	recordCount(r.metrics, awspkg.MetricWebhookIgnored, map[string]string{"Reason": reason})
	log.Debug("Webhook ignored", zap.String("reason", reason))
	res.Outcome = OutcomeIgnored
	return res
}

func (r *Reconciler) fail(log *zap.Logger, res ReconcileResult, msg string, err error) ReconcileResult {
	recordCount(r.metrics, awspkg.MetricReconciliationFailed, nil)
	log.Error(msg, zap.Error(err))
	res.Outcome, res.Err = OutcomeFailed, err
	return res
}
