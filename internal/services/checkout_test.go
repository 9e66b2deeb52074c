package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout-platform/internal/models"
)

type checkoutFixture struct {
	service      *CheckoutService
	recipients   *MockRecipientService
	coupons      *MockCouponService
	transactions *MockTransactionService
	purchaser    *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	recipients := NewMockRecipientService()
	coupons := NewMockCouponService()
	transactions := NewMockTransactionService()

	config := CheckoutConfig{ServiceFee: 200, DefaultCountry: "34", DurationSeconds: 600}
	engine := NewAssignmentEngine(recipients, "34")
	service := NewCheckoutService(config, engine, coupons, transactions)
	service.ResetForNewEvent("ev-1", "Warehouse Opening", "warehouse-opening")

	return &checkoutFixture{
		service:      service,
		recipients:   recipients,
		coupons:      coupons,
		transactions: transactions,
		purchaser:    &models.User{ID: "u-1", FirstName: "Ana", Phone: "600 123 456", PhoneCountry: "34"},
	}
}

func nominativeTicket(qty int) models.CartItem {
	return models.CartItem{
		ID:           "t1",
		PriceID:      "p1",
		Type:         models.ItemTicket,
		Name:         "General Admission",
		UnitPrice:    1000,
		Quantity:     qty,
		IsNominative: true,
	}
}

func plainProduct(qty int) models.CartItem {
	return models.CartItem{
		ID:        "pr1",
		PriceID:   "pp1",
		Type:      models.ItemProduct,
		Name:      "Tote Bag",
		UnitPrice: 500,
		Quantity:  qty,
	}
}

func (f *checkoutFixture) reachSummary(t *testing.T, items ...models.CartItem) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, f.service.AddItem(item))
	}
	require.NoError(t, f.service.ToggleAllForMe())
	require.NoError(t, f.service.GoToSummary(f.purchaser))
}

func TestCheckoutService_ZeroTotalShortCircuits(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result = &TransactionResult{
		Status:      "success",
		Transaction: TransactionData{ID: "tx-free", Status: TransactionStatusPending, TotalPrice: 0, Currency: "EUR"},
	}
	f.reachSummary(t, plainProduct(1))

	outcome, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, "tx-free", outcome.TransactionID)

	session := f.service.Session()
	assert.NotEqual(t, models.StepPayment, session.Step, "zero-total must never enter payment")
	assert.False(t, session.Cart.HasItems(), "terminal success clears the cart")
	assert.True(t, session.Completed)
}

func TestCheckoutService_CompletedSessionNeverResubmits(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result = &TransactionResult{
		Status:      "success",
		Transaction: TransactionData{ID: "tx-free", Status: TransactionStatusPending, TotalPrice: 0, Currency: "EUR"},
	}
	f.reachSummary(t, plainProduct(1))

	outcome, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.Completed)
	require.Equal(t, 1, f.transactions.CallCount())

	// Terminal success is one-way: no second handshake may leave the
	// process, not even an empty one.
	_, err = f.service.GoToPayment(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, f.transactions.CallCount())
}

func TestCheckoutService_EmptyCartNeverSubmits(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.service.GoToPayment(context.Background())
	require.ErrorIs(t, err, models.ErrInvalidStep)
	assert.Equal(t, 0, f.transactions.CallCount())
}

func TestCheckoutService_CompletedStatusShortCircuits(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result = &TransactionResult{
		Status:      "success",
		Transaction: TransactionData{ID: "tx-done", Status: TransactionStatusCompleted, TotalPrice: 1200, Currency: "EUR"},
	}
	f.reachSummary(t, plainProduct(1))

	outcome, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
}

func TestCheckoutService_PaymentRequiredAdvances(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result = &TransactionResult{
		Status:      "success",
		Transaction: TransactionData{ID: "tx-1", Status: TransactionStatusPending, TotalPrice: 1200, Currency: "EUR"},
	}
	f.reachSummary(t, plainProduct(2))

	outcome, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.Equal(t, 1200, outcome.Total)

	session := f.service.Session()
	assert.Equal(t, models.StepPayment, session.Step)
	assert.Equal(t, "tx-1", session.TransactionID)
	assert.Equal(t, "EUR", session.TransactionCurrency)
}

func TestCheckoutService_RejectedHandshakeLeavesStateUntouched(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result = &TransactionResult{Status: "error", Message: "event is sold out"}
	f.reachSummary(t, plainProduct(1))

	_, err := f.service.GoToPayment(context.Background())
	var rejected *TransactionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "event is sold out", rejected.Message, "server message is surfaced verbatim")

	session := f.service.Session()
	assert.Equal(t, models.StepSummary, session.Step)
	assert.Empty(t, session.TransactionID)
}

func TestCheckoutService_TransportFailureIsGeneric(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Err = errors.New("dial tcp: connection refused")
	f.reachSummary(t, plainProduct(1))

	_, err := f.service.GoToPayment(context.Background())
	require.ErrorIs(t, err, ErrTransactionUnavailable)

	session := f.service.Session()
	assert.Equal(t, models.StepSummary, session.Step)

	// The failure is recoverable: fixing the transport lets the same
	// session submit again.
	f.transactions.Err = nil
	_, err = f.service.GoToPayment(context.Background())
	require.NoError(t, err)
}

func TestCheckoutService_IncompleteAssignmentsBlockHandshake(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(nominativeTicket(2)))
	require.NoError(t, f.service.GoToSummary(f.purchaser))

	// Slot 1 was seeded as send and never resolved.
	_, err := f.service.GoToPayment(context.Background())
	require.ErrorIs(t, err, models.ErrAssignmentsIncomplete)
	assert.Zero(t, f.transactions.CallCount(), "gate must block before any network call")

	// Resolving the slot through the manual-email path opens the gate:
	// the lookup misses, routing the slot to notfound.
	require.NoError(t, f.service.SetAssignmentPhone(1, "600111222"))
	require.NoError(t, f.service.LookupRecipient(context.Background(), 1, f.purchaser))
	require.NoError(t, f.service.SetAssignmentEmail(1, "a@b.com"))

	_, err = f.service.GoToPayment(context.Background())
	require.NoError(t, err)
}

func TestCheckoutService_HandshakePayload(t *testing.T) {
	f := newCheckoutFixture(t)
	f.coupons.Coupons["TEN"] = &models.Coupon{ID: "c-1", Code: "TEN", Type: models.CouponPercentage, Value: 10}
	f.recipients.Users["34:600111222"] = "u-9"

	require.NoError(t, f.service.AddItem(nominativeTicket(2)))
	require.NoError(t, f.service.AddItem(plainProduct(3)))
	require.NoError(t, f.service.SetCoupon(context.Background(), "TEN"))

	// Slot 0 stays me; slot 1 resolves by lookup.
	require.NoError(t, f.service.SetAssignmentPhone(1, "600 111 222"))
	require.NoError(t, f.service.LookupRecipient(context.Background(), 1, f.purchaser))
	require.NoError(t, f.service.GoToSummary(f.purchaser))

	_, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)

	req := f.transactions.LastRequest
	require.NotNil(t, req)
	assert.Equal(t, "ev-1", req.EventID)
	assert.Equal(t, "TEN", req.CouponCode)
	require.Len(t, req.Items, 2)

	require.Len(t, req.Items[0].Attendees, 2)
	assert.True(t, req.Items[0].Attendees[0].IsForMe)
	assert.Equal(t, "u-9", req.Items[0].Attendees[1].ToUserID)
	assert.Empty(t, req.Items[1].Attendees, "non-nominative items carry no attendees")
}

func TestCheckoutService_SelfSendRejectedWithoutNetworkCall(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(nominativeTicket(2)))

	// The purchaser's own number, formatted differently.
	require.NoError(t, f.service.SetAssignmentPhone(1, "600-123-456"))
	err := f.service.LookupRecipient(context.Background(), 1, f.purchaser)
	require.ErrorIs(t, err, models.ErrSelfSend)
	assert.Zero(t, f.recipients.CallCount(), "self-send must be rejected locally")
}

func TestCheckoutService_LookupTooShortFailsLocally(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(nominativeTicket(2)))
	require.NoError(t, f.service.SetAssignmentPhone(1, "600"))

	err := f.service.LookupRecipient(context.Background(), 1, f.purchaser)
	require.ErrorIs(t, err, models.ErrPhoneTooShort)
	assert.Zero(t, f.recipients.CallCount())
}

func TestCheckoutService_LookupTransportFailureFailsOpen(t *testing.T) {
	f := newCheckoutFixture(t)
	f.recipients.Err = errors.New("timeout")
	require.NoError(t, f.service.AddItem(nominativeTicket(2)))
	require.NoError(t, f.service.SetAssignmentPhone(1, "600111222"))

	require.NoError(t, f.service.LookupRecipient(context.Background(), 1, f.purchaser))

	slot := f.service.Session().Assignments.Assignments[1]
	assert.Equal(t, models.AssignNotFound, slot.Type)
	assert.False(t, slot.IsSearching)
}

func TestCheckoutService_ExpiryFreezesUntilReset(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(plainProduct(1)))
	require.NoError(t, f.service.GoToSummary(f.purchaser))

	f.service.ExpireTimer()
	waitFor(t, func() bool { return f.service.Session().Expired }, "expiry never reached the session")

	assert.True(t, f.service.IsTimerExpired())
	_, err := f.service.GoToPayment(context.Background())
	require.ErrorIs(t, err, models.ErrSessionExpired)
	require.ErrorIs(t, f.service.SetAssignmentPhone(0, "611222333"), models.ErrSessionExpired)

	// Cart data survives for the retry.
	assert.True(t, f.service.HasItems())

	require.NoError(t, f.service.ResetTimer())
	assert.False(t, f.service.IsTimerExpired())
	assert.False(t, f.service.Session().Expired)
	_, err = f.service.GoToPayment(context.Background())
	require.NoError(t, err)
}

func TestCheckoutService_SubmissionSerialized(t *testing.T) {
	f := newCheckoutFixture(t)
	slow := &slowTransactionService{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  f.transactions.Result,
	}
	f.service.transactions = slow
	f.reachSummary(t, plainProduct(1))

	errCh := make(chan error, 1)
	go func() {
		_, err := f.service.GoToPayment(context.Background())
		errCh <- err
	}()

	<-slow.started
	_, err := f.service.GoToPayment(context.Background())
	require.ErrorIs(t, err, models.ErrSubmissionInFlight)

	close(slow.release)
	require.NoError(t, <-errCh)
}

type slowTransactionService struct {
	started chan struct{}
	release chan struct{}
	result  *TransactionResult
}

func (s *slowTransactionService) Create(_ context.Context, _ *CreateTransactionRequest) (*TransactionResult, error) {
	close(s.started)
	<-s.release
	return s.result, nil
}

func TestCheckoutService_ViewSnapshotIsConsistent(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(plainProduct(2)))

	view := f.service.View()
	assert.Equal(t, 1000, view.Pricing.Subtotal)
	assert.Equal(t, view.Session.Pricing(), view.Pricing)
	assert.Equal(t, view.Session.NominativeComplete(), view.NominativeComplete)
	assert.Equal(t, 600, view.RemainingSeconds)
}

func TestCheckoutService_TimerPollsSafeAcrossEventSwitch(t *testing.T) {
	f := newCheckoutFixture(t)

	// Timer reads must see a coherent pointer while an event switch
	// replaces it; run under -race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			f.service.ResetForNewEvent(fmt.Sprintf("ev-%d", i), "Event", "event")
		}
	}()
	for i := 0; i < 500; i++ {
		f.service.RemainingTime()
		f.service.IsTimerExpired()
	}
	<-done

	assert.Equal(t, 600, f.service.RemainingTime())
}

func TestCheckoutService_ResetForNewEvent(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.service.AddItem(nominativeTicket(1)))
	require.NoError(t, f.service.SetCoupon(context.Background(), ""))

	// Landing on the same event keeps the session in progress.
	f.service.ResetForNewEvent("ev-1", "Warehouse Opening", "warehouse-opening")
	assert.True(t, f.service.HasItems())

	// Switching events wipes everything.
	f.service.ResetForNewEvent("ev-2", "Rooftop Closing", "rooftop-closing")
	session := f.service.Session()
	assert.False(t, session.Cart.HasItems())
	assert.Nil(t, session.Coupon)
	assert.Empty(t, session.Assignments.Assignments)
	assert.Empty(t, session.TransactionID)
	assert.Equal(t, models.StepSelection, session.Step)
	assert.Equal(t, "ev-2", session.EventID)
}

func TestCheckoutService_GoBackClearsTransaction(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions.Result.Transaction.TotalPrice = 700
	f.reachSummary(t, plainProduct(1))

	_, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.StepPayment, f.service.Session().Step)

	require.NoError(t, f.service.GoBackCheckout())
	session := f.service.Session()
	assert.Equal(t, models.StepSummary, session.Step)
	assert.Empty(t, session.TransactionID)
	assert.True(t, session.Cart.HasItems())
}

func TestCheckoutService_CouponValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	f.coupons.Coupons["TEN"] = &models.Coupon{ID: "c-1", Code: "TEN", Type: models.CouponPercentage, Value: 10}
	require.NoError(t, f.service.AddItem(plainProduct(2)))

	require.Error(t, f.service.SetCoupon(context.Background(), "NOPE"))
	assert.Nil(t, f.service.Session().Coupon)

	require.NoError(t, f.service.SetCoupon(context.Background(), "TEN"))
	pricing := f.service.Pricing()
	assert.Equal(t, 200, f.service.GetServiceFee())
	assert.Equal(t, 1000, pricing.Subtotal)
	assert.Equal(t, 100, pricing.Discount)
	assert.Equal(t, 1100, pricing.Total)

	// Clearing the coupon restores the undiscounted total.
	require.NoError(t, f.service.SetCoupon(context.Background(), ""))
	assert.Equal(t, 1200, f.service.Pricing().Total)
}

func TestCheckoutManager_SessionsAreIsolated(t *testing.T) {
	f := newCheckoutFixture(t)
	manager := NewCheckoutManager(
		CheckoutConfig{ServiceFee: 200, DefaultCountry: "34", DurationSeconds: 600},
		NewAssignmentEngine(f.recipients, "34"),
		f.coupons,
		f.transactions,
	)

	a := manager.Get("sess-a")
	b := manager.Get("sess-b")
	require.NotSame(t, a, b)
	assert.Same(t, a, manager.Get("sess-a"), "same session id returns the same orchestrator")

	a.ResetForNewEvent("ev-1", "Warehouse Opening", "warehouse-opening")
	require.NoError(t, a.AddItem(plainProduct(1)))
	assert.False(t, b.HasItems())

	manager.Remove("sess-a")
	assert.NotSame(t, a, manager.Get("sess-a"), "removed session id yields a fresh orchestrator")
}

func TestCheckoutService_TimerCountsAcrossSteps(t *testing.T) {
	f := newCheckoutFixture(t)
	f.service.timer.interval = time.Millisecond
	f.transactions.Result.Transaction.TotalPrice = 700
	f.reachSummary(t, plainProduct(1))

	waitFor(t, func() bool { return f.service.RemainingTime() < 600 }, "timer never started in summary")
	before := f.service.RemainingTime()

	_, err := f.service.GoToPayment(context.Background())
	require.NoError(t, err)

	waitFor(t, func() bool { return f.service.RemainingTime() < before }, "timer stopped across the step transition")
	f.service.timer.Stop()
}
