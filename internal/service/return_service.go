package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"return-service/internal/models"
	"return-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// How long a per-order recording lock is held at most
const orderLockTTL = 30 * time.Second

// ReturnService runs the return eligibility pipeline: authenticate, match
// the uploaded photo against the catalog, verify the purchase, check the
// return window and damage policy, then record the approved return. Gates
// run in strict order and the first failing gate decides the outcome.
type ReturnService struct {
	store      CatalogStore
	matcher    *ProductMatcher
	compliance *ComplianceChecker
	locker     OrderLocker
	publisher  ReturnEventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewReturnService creates a new return service
func NewReturnService(
	store CatalogStore,
	matcher *ProductMatcher,
	compliance *ComplianceChecker,
	locker OrderLocker,
	publisher ReturnEventPublisher,
) *ReturnService {
	return &ReturnService{
		store:      store,
		matcher:    matcher,
		compliance: compliance,
		locker:     locker,
		publisher:  publisher,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// ProcessReturnRequest represents one return request
type ProcessReturnRequest struct {
	Email    string
	Password string
	Image    []byte
}

// ReturnDetails carries the confirmation payload for an approved return
type ReturnDetails struct {
	ProductName  string `json:"product_name"`
	OrderID      int64  `json:"order_id"`
	RefundAmount int64  `json:"refund_amount"`
	DamagePolicy string `json:"damage_policy"`
}

// ProcessReturnResult is the terminal outcome of one pipeline run
type ProcessReturnResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details *ReturnDetails `json:"details,omitempty"`
}

// ProcessReturn runs the eligibility pipeline for one request. Business-rule
// denials come back as a REJECTED result with the failing gate's message;
// only infrastructure failures return a Go error.
func (s *ReturnService) ProcessReturn(ctx context.Context, req *ProcessReturnRequest) (*ProcessReturnResult, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.ProcessReturn")
	defer span.End()

	util.ReturnsProcessedTotal.Inc()

	// Authenticate
	customer, err := s.store.FindCustomerByCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if customer == nil {
		return s.reject(ctx, 0, 0, models.ReasonAuthFailed,
			"authentication failed: incorrect email or password"), nil
	}

	// ValidateInput
	if len(req.Image) == 0 {
		return s.reject(ctx, customer.ID, 0, models.ReasonNoImage,
			"no image provided"), nil
	}

	// MatchProduct
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	product, score, err := s.matcher.FindBestMatch(ctx, req.Image, products)
	if errors.Is(err, ErrImageDecode) {
		return s.reject(ctx, customer.ID, 0, models.ReasonNoImage,
			"uploaded image could not be decoded"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("product matching failed: %w", err)
	}
	if product == nil {
		return s.reject(ctx, customer.ID, 0, models.ReasonNoMatch,
			"no matching product found"), nil
	}

	s.logger.Info("Product matched",
		zap.Int64("customer_id", customer.ID),
		zap.Int64("product_id", product.ID),
		zap.Float64("score", score))

	// VerifyPurchase
	order, err := s.store.GetOrderByCustomerAndProduct(ctx, customer.ID, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		return s.reject(ctx, customer.ID, product.ID, models.ReasonNotPurchased,
			fmt.Sprintf("the product %q was never purchased by this user", product.Name)), nil
	}

	// CheckReturnWindow
	if afterDay(s.now(), order.ReturnEligibleDate) {
		return s.reject(ctx, customer.ID, product.ID, models.ReasonWindowExpired,
			fmt.Sprintf("return period expired: the return was eligible until %s",
				order.ReturnEligibleDate.Format("2006-01-02"))), nil
	}

	// CheckDamagePolicy
	policy, err := s.store.GetDamagePolicyByID(ctx, product.DamagePolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load damage policy: %w", err)
	}
	if policy == nil {
		return s.reject(ctx, customer.ID, product.ID, models.ReasonNoPolicy,
			"no damage policy found for this product"), nil
	}
	if !s.compliance.IsCompliant(ctx, req.Image, policy.Conditions) {
		return s.reject(ctx, customer.ID, product.ID, models.ReasonNonCompliant,
			"return rejected due to non-compliance with the damage policy"), nil
	}

	// RecordReturn
	ret := &models.ReturnedOrder{
		OrderID:      order.ID,
		CustomerID:   customer.ID,
		ProductID:    product.ID,
		QtyReturned:  1,
		RefundAmount: product.Price,
		ReturnedAt:   s.now(),
	}

	if err := s.recordReturn(ctx, ret); err != nil {
		util.ReturnsRejectedTotal.WithLabelValues(models.ReasonInfrastructure).Inc()
		return nil, fmt.Errorf("failed to record return: %w", err)
	}

	util.ReturnsApprovedTotal.Inc()
	s.logger.Info("Return recorded",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customer.ID),
		zap.Int64("product_id", product.ID),
		zap.Int64("refund_amount", ret.RefundAmount))

	event := &models.ReturnRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnRecorded,
			Timestamp: s.now(),
		},
		OrderID:      order.ID,
		CustomerID:   customer.ID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		RefundAmount: ret.RefundAmount,
		MatchScore:   score,
	}
	if err := s.publisher.PublishReturnRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnRecorded event", zap.Error(err))
	}

	return &ProcessReturnResult{
		Status: models.ReturnStatusApproved,
		Message: fmt.Sprintf("Return processed successfully. Product: %s. Refund eligible. Damage policy: %s",
			product.Name, policy.Conditions),
		Details: &ReturnDetails{
			ProductName:  product.Name,
			OrderID:      order.ID,
			RefundAmount: ret.RefundAmount,
			DamagePolicy: policy.Conditions,
		},
	}, nil
}

// recordReturn persists the returned order under the per-order lock so that
// concurrent retries of the same order cannot race the insert
func (s *ReturnService) recordReturn(ctx context.Context, ret *models.ReturnedOrder) error {
	acquired, err := s.locker.AcquireOrderLock(ctx, ret.OrderID, orderLockTTL)
	if err != nil {
		// Lock service trouble should not take down recording entirely
		s.logger.Warn("Order lock unavailable, recording without it",
			zap.Int64("order_id", ret.OrderID), zap.Error(err))
		return s.store.CreateReturnedOrder(ctx, ret)
	}
	if !acquired {
		return fmt.Errorf("return for order %d is already being recorded", ret.OrderID)
	}
	defer func() {
		if err := s.locker.ReleaseOrderLock(ctx, ret.OrderID); err != nil {
			s.logger.Warn("Failed to release order lock",
				zap.Int64("order_id", ret.OrderID), zap.Error(err))
		}
	}()

	return s.store.CreateReturnedOrder(ctx, ret)
}

// reject produces a terminal rejection, counts it, and publishes the
// rejection event. Denials are expected outcomes, logged at Info.
func (s *ReturnService) reject(ctx context.Context, customerID, productID int64, reason, message string) *ProcessReturnResult {
	util.ReturnsRejectedTotal.WithLabelValues(reason).Inc()
	s.logger.Info("Return rejected",
		zap.String("reason", reason),
		zap.Int64("customer_id", customerID),
		zap.Int64("product_id", productID))

	event := &models.ReturnRejectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnRejected,
			Timestamp: s.now(),
		},
		CustomerID: customerID,
		ProductID:  productID,
		Reason:     reason,
		Message:    message,
	}
	if err := s.publisher.PublishReturnRejected(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnRejected event", zap.Error(err))
	}

	return &ProcessReturnResult{
		Status:  models.ReturnStatusRejected,
		Message: message,
	}
}

// afterDay reports whether a falls on a later calendar day than b. The
// return window is a date cutoff, not an instant, so the comparison is on
// (year, month, day) in each time's own location; mixing zones (a UTC
// timestamp from the database against a local server clock) must not shift
// the cutoff.
func afterDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}
