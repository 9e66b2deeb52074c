package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"event-checkout-platform/internal/models"
)

// CheckoutConfig carries the operator settings the orchestrator needs
type CheckoutConfig struct {
	ServiceFee      int
	DefaultCountry  string
	DurationSeconds int

	// OnExpire, when set, is invoked each time a session is frozen by
	// the countdown timer.
	OnExpire func()
}

// TransactionRejectedError carries a server-side handshake rejection.
// Its message is surfaced to the user verbatim.
type TransactionRejectedError struct {
	Message string
}

func (e *TransactionRejectedError) Error() string {
	return e.Message
}

// ErrTransactionUnavailable hides transport details behind a generic
// connectivity failure message
var ErrTransactionUnavailable = fmt.Errorf("could not reach the transaction service, please try again")

// CheckoutOutcome is the result of a successful handshake submission
type CheckoutOutcome struct {
	Completed     bool
	TransactionID string
	Total         int
	Currency      string
}

// CheckoutService orchestrates one user's checkout session: the cart,
// the active step, the coupon, the assignment set, the countdown timer
// and the linkage to the server-issued transaction. All session access
// goes through its lock; network calls never happen under it, and the
// handshake payload is always assembled from current state at call
// time.
type CheckoutService struct {
	mu         sync.Mutex
	session    models.CheckoutSession
	timer      *CheckoutTimer
	submitting bool

	engine       *AssignmentEngine
	coupons      CouponServiceInterface
	transactions TransactionServiceInterface
	config       CheckoutConfig
}

// NewCheckoutService creates an orchestrator with an empty session
func NewCheckoutService(config CheckoutConfig, engine *AssignmentEngine, coupons CouponServiceInterface, transactions TransactionServiceInterface) *CheckoutService {
	s := &CheckoutService{
		engine:       engine,
		coupons:      coupons,
		transactions: transactions,
		config:       config,
	}
	s.timer = NewCheckoutTimer(config.DurationSeconds, s.onTimerExpire)
	return s
}

func (s *CheckoutService) onTimerExpire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := models.Apply(s.session, models.ExpiredEvent{})
	if err != nil {
		// A completed session no longer cares about the countdown.
		return
	}
	s.session = next
	log.Printf("Checkout session for event %s expired", s.session.EventID)
	if s.config.OnExpire != nil {
		s.config.OnExpire()
	}
}

// apply runs one event through the session state machine under the lock
func (s *CheckoutService) apply(event models.SessionEvent) error {
	next, err := models.Apply(s.session, event)
	if err != nil {
		return err
	}
	s.session = next
	return nil
}

// Session returns a copy of the current session state for rendering
func (s *CheckoutService) Session() models.CheckoutSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// CheckoutView is a session snapshot with its derived values taken
// under one lock, so the pieces never mix states from either side of a
// concurrent mutation.
type CheckoutView struct {
	Session            models.CheckoutSession
	Pricing            models.PricingBreakdown
	RemainingSeconds   int
	NominativeComplete bool
}

// View assembles an internally consistent snapshot for rendering
func (s *CheckoutService) View() CheckoutView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CheckoutView{
		Session:            s.session,
		Pricing:            s.session.Pricing(),
		RemainingSeconds:   s.timer.Remaining(),
		NominativeComplete: s.session.NominativeComplete(),
	}
}

// ResetForNewEvent seeds a fresh session when the user lands on an
// event. Landing on the same event keeps the session in progress;
// switching events unconditionally clears cart, coupon, assignments,
// transaction linkage and timer so nothing leaks across events.
func (s *CheckoutService) ResetForNewEvent(eventID, eventName, eventSlug string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.EventID == eventID && !s.session.Completed {
		return
	}

	s.timer.Stop()
	s.timer = NewCheckoutTimer(s.config.DurationSeconds, s.onTimerExpire)
	s.session = models.NewCheckoutSession(eventID, eventName, eventSlug, s.config.ServiceFee, s.config.DefaultCountry)
	s.submitting = false
}

// AddItem applies a quantity delta for one priced item
func (s *CheckoutService) AddItem(item models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.AddItemEvent{Item: item})
}

// ClearItemsByType removes all items of one category
func (s *CheckoutService) ClearItemsByType(t models.ItemType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.ClearItemsByTypeEvent{Type: t})
}

// HasItems reports whether the cart holds anything
func (s *CheckoutService) HasItems() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Cart.HasItems()
}

// ClearCart empties the cart and all derived state
func (s *CheckoutService) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.ClearCartEvent{})
}

// GetServiceFee returns the configured service fee in cents
func (s *CheckoutService) GetServiceFee() int {
	return s.config.ServiceFee
}

// Pricing recomputes the payable breakdown from current state
func (s *CheckoutService) Pricing() models.PricingBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Pricing()
}

// SetCoupon validates and attaches a coupon code; an empty code removes
// the active coupon. An invalid code is reported without touching the
// session.
func (s *CheckoutService) SetCoupon(ctx context.Context, code string) error {
	if code == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.apply(models.SetCouponEvent{Coupon: nil})
	}

	result, err := s.coupons.Validate(ctx, code)
	if err != nil {
		return fmt.Errorf("could not validate coupon: %w", err)
	}
	if !result.Valid {
		if result.Message != "" {
			return fmt.Errorf("%w: %s", models.ErrCouponInvalid, result.Message)
		}
		return models.ErrCouponInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.SetCouponEvent{Coupon: result.Coupon})
}

// SetNominativeAssignments replaces the assignment set wholesale
func (s *CheckoutService) SetNominativeAssignments(set models.AssignmentSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.SetAssignmentsEvent{Assignments: set})
}

// mutateAssignments runs one pure assignment transition under the
// session freeze rules
func (s *CheckoutService) mutateAssignments(fn func(*models.AssignmentSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Completed {
		return models.ErrInvalidStep
	}
	if s.session.Expired {
		return models.ErrSessionExpired
	}
	return fn(&s.session.Assignments)
}

// AssignMe marks a slot as kept by the purchaser
func (s *CheckoutService) AssignMe(index int) error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		return set.SetMe(index)
	})
}

// AssignSend marks a slot as destined for someone else
func (s *CheckoutService) AssignSend(index int) error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		return set.SetSend(index, s.engine.DefaultCountry())
	})
}

// SetAssignmentPhone records a phone edit for a slot
func (s *CheckoutService) SetAssignmentPhone(index int, phone string) error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		return set.SetPhone(index, phone)
	})
}

// SetAssignmentPhoneCountry records a country edit for a slot
func (s *CheckoutService) SetAssignmentPhoneCountry(index int, country string) error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		return set.SetPhoneCountry(index, country)
	})
}

// SetAssignmentEmail records the manual email for a notfound slot
func (s *CheckoutService) SetAssignmentEmail(index int, email string) error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		return set.SetEmail(index, email)
	})
}

// ToggleAllForMe flips the whole assignment set in bulk
func (s *CheckoutService) ToggleAllForMe() error {
	return s.mutateAssignments(func(set *models.AssignmentSet) error {
		set.ToggleAllForMe(s.engine.DefaultCountry())
		return nil
	})
}

// LookupRecipient resolves one slot's phone number to a platform user.
// The slot's searching flag serializes lookups: a second trigger while
// one is outstanding is refused, never interleaved. Transport failures
// route the slot to the manual-email path.
func (s *CheckoutService) LookupRecipient(ctx context.Context, index int, purchaser *models.User) error {
	s.mu.Lock()
	if s.session.Completed {
		s.mu.Unlock()
		return models.ErrInvalidStep
	}
	if s.session.Expired {
		s.mu.Unlock()
		return models.ErrSessionExpired
	}
	country, phone, err := s.engine.BeginLookup(&s.session.Assignments, index, purchaser)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	result, lookupErr := s.engine.Resolve(ctx, country, phone)

	s.mu.Lock()
	defer s.mu.Unlock()
	return ApplyLookupOutcome(&s.session.Assignments, index, result, lookupErr)
}

// NominativeComplete reports whether the checkout gate is satisfied
func (s *CheckoutService) NominativeComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.NominativeComplete()
}

// GoToSummary advances from selection to summary. The countdown starts
// the first time the session reaches the summary step.
func (s *CheckoutService) GoToSummary(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(models.GoToSummaryEvent{Authenticated: user != nil}); err != nil {
		return err
	}
	s.timer.Start()
	return nil
}

// GoBackCheckout steps backwards one step, discarding the linked
// transaction when leaving payment. The countdown keeps running: it
// bounds total time held, not time per step.
func (s *CheckoutService) GoBackCheckout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.GoBackEvent{})
}

// GoToSelection jumps back to the selection step, keeping the cart
func (s *CheckoutService) GoToSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.GoToSelectionEvent{})
}

// GoToPayment performs the transaction handshake and advances the
// session on success. A zero-total or already-completed transaction
// short-circuits to terminal success without entering payment. One
// submission may be in flight at a time.
func (s *CheckoutService) GoToPayment(ctx context.Context) (*CheckoutOutcome, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, models.ErrSubmissionInFlight
	}
	if s.session.Expired {
		s.mu.Unlock()
		return nil, models.ErrSessionExpired
	}
	// Terminal success is one-way: a completed session never submits
	// again, and an empty cart has nothing to submit.
	if s.session.Completed {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	if s.session.Step != models.StepSummary {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	if !s.session.Cart.HasItems() {
		s.mu.Unlock()
		return nil, models.ErrEmptyCart
	}
	if !s.session.NominativeComplete() {
		s.mu.Unlock()
		return nil, models.ErrAssignmentsIncomplete
	}

	// The payload reflects every mutation made before this call; it is
	// assembled synchronously from current state under the lock.
	req := buildTransactionRequest(&s.session)
	s.submitting = true
	s.mu.Unlock()

	result, err := s.transactions.Create(ctx, req)

	s.mu.Lock()
	defer func() {
		s.submitting = false
		s.mu.Unlock()
	}()

	if err != nil {
		log.Printf("Transaction handshake failed: %v", err)
		return nil, ErrTransactionUnavailable
	}
	if result.Status != "success" {
		return nil, &TransactionRejectedError{Message: result.Message}
	}

	tx := result.Transaction
	if tx.TotalPrice == 0 || tx.Status == TransactionStatusCompleted {
		if err := s.apply(models.CompletedEvent{TransactionID: tx.ID}); err != nil {
			return nil, err
		}
		s.timer.Stop()
		return &CheckoutOutcome{Completed: true, TransactionID: tx.ID}, nil
	}

	if err := s.apply(models.TransactionLinkedEvent{ID: tx.ID, Total: tx.TotalPrice, Currency: tx.Currency}); err != nil {
		return nil, err
	}
	return &CheckoutOutcome{
		TransactionID: tx.ID,
		Total:         tx.TotalPrice,
		Currency:      tx.Currency,
	}, nil
}

// buildTransactionRequest flattens the cart into item requests, with
// per-item attendee lists derived from the assignment set for
// nominative items only
func buildTransactionRequest(session *models.CheckoutSession) *CreateTransactionRequest {
	req := &CreateTransactionRequest{EventID: session.EventID}
	if session.Coupon != nil {
		req.CouponCode = session.Coupon.Code
	}

	attendees := models.DeriveAttendees(&session.Cart, &session.Assignments)
	nominativeIndex := 0
	for _, item := range session.Cart.Items {
		itemReq := TransactionItemRequest{
			ItemID:   item.ID,
			PriceID:  item.PriceID,
			Type:     item.Type,
			Quantity: item.Quantity,
		}
		if item.IsNominative {
			itemReq.Attendees = attendees[nominativeIndex]
			nominativeIndex++
		}
		req.Items = append(req.Items, itemReq)
	}
	return req
}

// SetTransaction links a server transaction to the session directly.
// Used when resuming an interrupted checkout.
func (s *CheckoutService) SetTransaction(id string, total int, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(models.TransactionLinkedEvent{ID: id, Total: total, Currency: currency}); err != nil {
		return err
	}
	s.timer.Start()
	return nil
}

// ClearTransaction drops the linked transaction so a stale id is never
// resubmitted
func (s *CheckoutService) ClearTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(models.TransactionClearedEvent{})
}

// currentTimer reads the timer pointer under the session lock.
// ResetForNewEvent swaps the pointer, so unguarded reads race with an
// event switch.
func (s *CheckoutService) currentTimer() *CheckoutTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// RemainingTime returns the seconds left on the countdown
func (s *CheckoutService) RemainingTime() int {
	return s.currentTimer().Remaining()
}

// IsTimerExpired reports the level-triggered expired condition
func (s *CheckoutService) IsTimerExpired() bool {
	return s.currentTimer().Expired()
}

// ExpireTimer forces the countdown to zero immediately
func (s *CheckoutService) ExpireTimer() {
	s.currentTimer().Expire()
}

// ResetTimer is the explicit retry action after expiration: the stale
// transaction is invalidated, the expired condition cleared, and the
// countdown re-armed from its configured duration.
func (s *CheckoutService) ResetTimer() error {
	s.mu.Lock()
	if err := s.apply(models.RetryEvent{}); err != nil {
		s.mu.Unlock()
		return err
	}
	timer := s.timer
	s.mu.Unlock()

	timer.Reset()
	return nil
}
