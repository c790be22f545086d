package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// CheckoutCurrency is the only currency sessions are created in.
	CheckoutCurrency = "usd"

	// MaxUnitAmount is the largest unit_amount the processor accepts (8 digits of minor units).
	MaxUnitAmount int64 = 99_999_999
)

var hundred = decimal.NewFromInt(100)

type CheckoutRequest struct {
	Cart          []models.CartItem `json:"cart" validate:"required,min=1,dive"`
	CustomerEmail string            `json:"email" validate:"required,email"`
}

type CheckoutService struct {
	gateway    CheckoutGateway
	validate   *validator.Validate
	successURL string
	cancelURL  string
	timeout    time.Duration
	metrics    awspkg.MetricsRecorder
	logger     *zap.Logger
}

type CheckoutOptions struct {
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
	Metrics    awspkg.MetricsRecorder
}

func NewCheckoutService(gateway CheckoutGateway, validate *validator.Validate, opts CheckoutOptions, logger *zap.Logger) *CheckoutService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &CheckoutService{
		gateway:    gateway,
		validate:   validate,
		successURL: opts.SuccessURL,
		cancelURL:  opts.CancelURL,
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// SuccessURL builds the hosted checkout return URL. Stripe substitutes the
// session id placeholder on redirect.
func SuccessURL(frontendURL string) string {
	return strings.TrimSuffix(frontendURL, "/") + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func CancelURL(frontendURL string) string {
	return strings.TrimSuffix(frontendURL, "/") + "/cancel"
}

// ToMinorUnits converts a currency amount to integer cents with a single
// round-half-away-from-zero step: 19.99 -> 1999, 0.015 -> 2.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount.String())
	}
	minor := amount.Mul(hundred).Round(0)
	if minor.GreaterThan(decimal.NewFromInt(MaxUnitAmount)) {
		return 0, fmt.Errorf("amount %s exceeds the maximum unit amount", amount.String())
	}
	return minor.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// BuildPriceDescriptors validates req and converts every cart line into a
// processor price descriptor. It performs no I/O.
func (s *CheckoutService) BuildPriceDescriptors(req *CheckoutRequest) ([]PriceDescriptor, error) {
	if len(req.Cart) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrValidation, "cart must not be empty")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, describeValidation(err))
	}

	descriptors := make([]PriceDescriptor, 0, len(req.Cart))
	for i, item := range req.Cart {
		if strings.TrimSpace(item.Title) == "" {
			return nil, apperrors.Wrapf(apperrors.ErrValidation, "cart[%d]: title must not be blank", i)
		}
		if item.Quantity <= 0 {
			return nil, apperrors.Wrapf(apperrors.ErrValidation, "cart[%d]: quantity must be positive", i)
		}
		if item.UnitPrice == nil {
			return nil, apperrors.Wrapf(apperrors.ErrValidation, "cart[%d]: price is required", i)
		}
		unitAmount, err := ToMinorUnits(*item.UnitPrice)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrValidation, "cart[%d]: %v", i, err)
		}
		descriptors = append(descriptors, PriceDescriptor{
			Currency:    CheckoutCurrency,
			ProductName: strings.TrimSpace(item.Title),
			ImageURL:    item.ImageURL,
			UnitAmount:  unitAmount,
			Quantity:    item.Quantity,
		})
	}
	return descriptors, nil
}

// Initiate validates the cart, then creates a hosted checkout session. Nothing
// is persisted locally.
func (s *CheckoutService) Initiate(ctx context.Context, req *CheckoutRequest) (*CheckoutSessionResult, error) {
	descriptors, err := s.BuildPriceDescriptors(req)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.gateway.CreateCheckoutSession(callCtx, &CheckoutSessionRequest{
		CustomerEmail: req.CustomerEmail,
		LineItems:     descriptors,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
	})
	if err != nil {
		recordCount(s.metrics, awspkg.MetricCheckoutFailures, nil)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("processor did not respond within %s: %w", s.timeout, err)
		}
		s.logger.Error("Failed to create checkout session",
			zap.String("customer_email", req.CustomerEmail),
			zap.Int("line_items", len(descriptors)),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(apperrors.ErrCheckoutInitiationFailed, err)
	}

	recordCount(s.metrics, awspkg.MetricCheckoutSessions, nil)
	s.logger.Info("Checkout session created",
		zap.String("session_id", result.SessionID),
		zap.String("customer_email", req.CustomerEmail),
		zap.Int("line_items", len(descriptors)),
	)
	return result, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
