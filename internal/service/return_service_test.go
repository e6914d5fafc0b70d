package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"return-service/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalogStore is an in-memory CatalogStore that counts read calls
type fakeCatalogStore struct {
	customer *models.Customer
	password string
	products []models.Product
	order    *models.Order
	policy   *models.DamagePolicy

	returns   []*models.ReturnedOrder
	createErr error

	productCalls int
	orderCalls   int
}

func (f *fakeCatalogStore) FindCustomerByCredentials(ctx context.Context, email, password string) (*models.Customer, error) {
	if f.customer != nil && f.customer.Email == email && f.password == password {
		return f.customer, nil
	}
	return nil, nil
}

func (f *fakeCatalogStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	f.productCalls++
	return f.products, nil
}

func (f *fakeCatalogStore) GetOrderByCustomerAndProduct(ctx context.Context, customerID, productID int64) (*models.Order, error) {
	f.orderCalls++
	if f.order != nil && f.order.CustomerID == customerID && f.order.ProductID == productID {
		return f.order, nil
	}
	return nil, nil
}

func (f *fakeCatalogStore) GetDamagePolicyByID(ctx context.Context, id int64) (*models.DamagePolicy, error) {
	if f.policy != nil && f.policy.ID == id {
		return f.policy, nil
	}
	return nil, nil
}

func (f *fakeCatalogStore) CreateReturnedOrder(ctx context.Context, ret *models.ReturnedOrder) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.returns = append(f.returns, ret)
	return nil
}

type fakeLocker struct {
	denied bool
	err    error
}

func (f *fakeLocker) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.denied, nil
}

func (f *fakeLocker) ReleaseOrderLock(ctx context.Context, orderID int64) error { return nil }

type fakePublisher struct {
	recorded []*models.ReturnRecordedEvent
	rejected []*models.ReturnRejectedEvent
}

func (f *fakePublisher) PublishReturnRecorded(ctx context.Context, e *models.ReturnRecordedEvent) error {
	f.recorded = append(f.recorded, e)
	return nil
}

func (f *fakePublisher) PublishReturnRejected(ctx context.Context, e *models.ReturnRejectedEvent) error {
	f.rejected = append(f.rejected, e)
	return nil
}

// fixture wires a full pipeline over fakes: one customer, one product with
// one catalog image matching the upload at the given score, one order, and a
// "clean" damage policy satisfied by the detector labels.
type fixture struct {
	store     *fakeCatalogStore
	locker    *fakeLocker
	publisher *fakePublisher
	detector  *fakeDetector
	svc       *ReturnService
	now       time.Time
}

func newFixture(t *testing.T, matchScore float64) *fixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	store := &fakeCatalogStore{
		customer: &models.Customer{ID: 7, Email: "alice@example.com"},
		password: "secret",
		products: []models.Product{{
			ID:             3,
			Name:           "Aurora Lamp",
			Price:          129900,
			Images:         pq.StringArray{"ref-lamp"},
			DamagePolicyID: 11,
		}},
		order: &models.Order{
			ID:                 42,
			CustomerID:         7,
			ProductID:          3,
			OrderDate:          now.AddDate(0, 0, -10),
			DeliveryDate:       now.AddDate(0, 0, -7),
			ReturnEligibleDate: now.AddDate(0, 0, 3),
		},
		policy: &models.DamagePolicy{ID: 11, Conditions: "clean"},
	}

	extractor := &fakeExtractor{vectors: map[string][]float64{
		"upload": {1, 0},
		"lamp":   unitVec(matchScore),
	}}
	fetcher := &fakeFetcher{images: map[string][]byte{"ref-lamp": []byte("lamp")}}
	matcher := newTestMatcher(extractor, fetcher, nil, 0.70)

	detector := &fakeDetector{labels: []string{"Clean"}}
	locker := &fakeLocker{}
	publisher := &fakePublisher{}

	svc := NewReturnService(store, matcher, NewComplianceChecker(detector), locker, publisher)
	svc.now = func() time.Time { return now }

	return &fixture{
		store:     store,
		locker:    locker,
		publisher: publisher,
		detector:  detector,
		svc:       svc,
		now:       now,
	}
}

func validRequest() *ProcessReturnRequest {
	return &ProcessReturnRequest{
		Email:    "alice@example.com",
		Password: "secret",
		Image:    []byte("upload"),
	}
}

func TestProcessReturnApproved(t *testing.T) {
	f := newFixture(t, 0.85)

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusApproved, result.Status)
	require.NotNil(t, result.Details)
	assert.Equal(t, "Aurora Lamp", result.Details.ProductName)
	assert.Equal(t, int64(42), result.Details.OrderID)
	assert.Equal(t, int64(129900), result.Details.RefundAmount)
	assert.Equal(t, "clean", result.Details.DamagePolicy)

	require.Len(t, f.store.returns, 1)
	ret := f.store.returns[0]
	assert.Equal(t, int64(42), ret.OrderID)
	assert.Equal(t, int64(7), ret.CustomerID)
	assert.Equal(t, int64(3), ret.ProductID)
	assert.Equal(t, 1, ret.QtyReturned)
	assert.Equal(t, int64(129900), ret.RefundAmount)
	assert.Equal(t, f.now, ret.ReturnedAt)

	require.Len(t, f.publisher.recorded, 1)
	assert.InDelta(t, 0.85, f.publisher.recorded[0].MatchScore, 1e-9)
}

func TestProcessReturnWindowExpired(t *testing.T) {
	f := newFixture(t, 0.85)
	// Move "today" to the day after the cutoff
	f.svc.now = func() time.Time { return f.store.order.ReturnEligibleDate.AddDate(0, 0, 1) }

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Contains(t, result.Message, "return period expired")
	assert.Contains(t, result.Message, f.store.order.ReturnEligibleDate.Format("2006-01-02"))
	assert.Empty(t, f.store.returns)
}

func TestProcessReturnOnExpiryDayStillEligible(t *testing.T) {
	f := newFixture(t, 0.85)
	// Late on the cutoff day itself: the window is a date, not an instant
	f.svc.now = func() time.Time {
		d := f.store.order.ReturnEligibleDate
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 30, 0, 0, d.Location())
	}

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusApproved, result.Status)
}

func TestProcessReturnWindowComparesCalendarDates(t *testing.T) {
	f := newFixture(t, 0.85)
	// Cutoff stored as a UTC midnight timestamp, server clock in UTC-5
	f.store.order.ReturnEligibleDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	early := time.FixedZone("UTC-5", -5*3600)

	// Late evening of the cutoff day in the server's zone is already
	// 2026-03-11 in UTC, but the calendar day still matches
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 22, 0, 0, 0, early) }

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusApproved, result.Status)

	// One local calendar day later the window is gone
	f.svc.now = func() time.Time { return time.Date(2026, 3, 11, 1, 0, 0, 0, early) }

	result, err = f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Contains(t, result.Message, "return period expired")
}

func TestProcessReturnNoMatch(t *testing.T) {
	f := newFixture(t, 0.65)

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Equal(t, "no matching product found", result.Message)
	assert.Zero(t, f.store.orderCalls, "no purchase lookup after a failed match")
	assert.Empty(t, f.store.returns)
}

func TestProcessReturnAuthFailureShortCircuits(t *testing.T) {
	f := newFixture(t, 0.85)

	req := validRequest()
	req.Password = "wrong"

	result, err := f.svc.ProcessReturn(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Contains(t, result.Message, "authentication failed")
	assert.Zero(t, f.store.productCalls, "catalog must not be touched after auth failure")
	assert.Zero(t, f.store.orderCalls)
	assert.Empty(t, f.store.returns)
}

func TestProcessReturnMissingImage(t *testing.T) {
	f := newFixture(t, 0.85)

	req := validRequest()
	req.Image = nil

	result, err := f.svc.ProcessReturn(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Equal(t, "no image provided", result.Message)
	assert.Zero(t, f.store.productCalls)
}

func TestProcessReturnNeverPurchased(t *testing.T) {
	f := newFixture(t, 0.85)
	f.store.order = nil

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Contains(t, result.Message, "never purchased by this user")
	assert.Contains(t, result.Message, "Aurora Lamp")
}

func TestProcessReturnNoDamagePolicy(t *testing.T) {
	f := newFixture(t, 0.85)
	f.store.policy = nil

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Equal(t, "no damage policy found for this product", result.Message)
}

func TestProcessReturnPolicyNonCompliance(t *testing.T) {
	f := newFixture(t, 0.85)
	f.detector.labels = []string{"shattered glass"}

	result, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, result.Status)
	assert.Contains(t, result.Message, "non-compliance with the damage policy")
	assert.Empty(t, f.store.returns)
}

func TestProcessReturnPersistenceFailure(t *testing.T) {
	f := newFixture(t, 0.85)
	f.store.createErr = errors.New("connection reset")

	_, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record return")
	assert.Empty(t, f.publisher.recorded)
}

func TestProcessReturnConcurrentDuplicateBlocked(t *testing.T) {
	f := newFixture(t, 0.85)
	f.locker.denied = true

	_, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.Error(t, err)
	assert.Empty(t, f.store.returns)
}

func TestProcessReturnRejectionPublishesEvent(t *testing.T) {
	f := newFixture(t, 0.65)

	_, err := f.svc.ProcessReturn(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, f.publisher.rejected, 1)
	assert.Equal(t, models.ReasonNoMatch, f.publisher.rejected[0].Reason)
}
