package models

// CheckoutStep identifies the stage a checkout session is in
type CheckoutStep string

const (
	StepSelection CheckoutStep = "selection"
	StepSummary   CheckoutStep = "summary"
	StepPayment   CheckoutStep = "payment"
)

// CheckoutSession is the client-held checkout state for one event,
// spanning selection through payment. It is an explicit value mutated
// only through Apply, so the step machine is testable on its own.
type CheckoutSession struct {
	EventID             string        `json:"event_id"`
	EventName           string        `json:"event_name"`
	EventSlug           string        `json:"event_slug"`
	Cart                Cart          `json:"cart"`
	Step                CheckoutStep  `json:"step"`
	Coupon              *Coupon       `json:"coupon,omitempty"`
	Assignments         AssignmentSet `json:"assignments"`
	ServiceFee          int           `json:"service_fee"`
	DefaultCountry      string        `json:"default_country"`
	TransactionID       string        `json:"transaction_id,omitempty"`
	TransactionTotal    int           `json:"transaction_total,omitempty"`
	TransactionCurrency string        `json:"transaction_currency,omitempty"`
	Expired             bool          `json:"expired"`
	Completed           bool          `json:"completed"`
}

// NewCheckoutSession seeds a fresh session for an event
func NewCheckoutSession(eventID, eventName, eventSlug string, serviceFee int, defaultCountry string) CheckoutSession {
	return CheckoutSession{
		EventID:        eventID,
		EventName:      eventName,
		EventSlug:      eventSlug,
		Step:           StepSelection,
		ServiceFee:     serviceFee,
		DefaultCountry: defaultCountry,
	}
}

// Pricing recomputes the payable breakdown from current state
func (s *CheckoutSession) Pricing() PricingBreakdown {
	return ComputePricing(&s.Cart, s.Coupon, s.ServiceFee)
}

// NominativeComplete reports whether every nominative slot in the cart
// has a complete assignment
func (s *CheckoutSession) NominativeComplete() bool {
	return s.Assignments.Complete(s.Cart.NominativeSlotCount())
}

// SessionEvent is a state-machine input applied to a CheckoutSession
type SessionEvent interface {
	sessionEvent()
}

// AddItemEvent adds a quantity delta for one priced item
type AddItemEvent struct{ Item CartItem }

// ClearItemsByTypeEvent removes all items of one category
type ClearItemsByTypeEvent struct{ Type ItemType }

// ClearCartEvent empties the cart and drops derived state
type ClearCartEvent struct{}

// SetCouponEvent attaches or removes the active coupon
type SetCouponEvent struct{ Coupon *Coupon }

// SetAssignmentsEvent replaces the nominative assignment set
type SetAssignmentsEvent struct{ Assignments AssignmentSet }

// GoToSummaryEvent advances selection to summary
type GoToSummaryEvent struct{ Authenticated bool }

// GoBackEvent steps backwards one step (payment to summary, summary to
// selection), keeping the cart
type GoBackEvent struct{}

// GoToSelectionEvent jumps back to selection from any step
type GoToSelectionEvent struct{}

// TransactionLinkedEvent records a payment-required server transaction
// and advances to payment
type TransactionLinkedEvent struct {
	ID       string
	Total    int
	Currency string
}

// TransactionClearedEvent drops the linked transaction
type TransactionClearedEvent struct{}

// CompletedEvent is the one-way terminal success exit
type CompletedEvent struct{ TransactionID string }

// ExpiredEvent overlays the expired condition on the session
type ExpiredEvent struct{}

// RetryEvent recovers from expiration: the stale transaction is
// discarded and forward progress is unfrozen
type RetryEvent struct{}

func (AddItemEvent) sessionEvent()            {}
func (ClearItemsByTypeEvent) sessionEvent()   {}
func (ClearCartEvent) sessionEvent()          {}
func (SetCouponEvent) sessionEvent()          {}
func (SetAssignmentsEvent) sessionEvent()     {}
func (GoToSummaryEvent) sessionEvent()        {}
func (GoBackEvent) sessionEvent()             {}
func (GoToSelectionEvent) sessionEvent()      {}
func (TransactionLinkedEvent) sessionEvent()  {}
func (TransactionClearedEvent) sessionEvent() {}
func (CompletedEvent) sessionEvent()          {}
func (ExpiredEvent) sessionEvent()            {}
func (RetryEvent) sessionEvent()              {}

// Apply is the session transition function. It returns the updated
// session, leaving the input untouched on error: a refused transition
// never mutates the step or any other field. Once a session has
// completed it only accepts a reset to a new event, handled by the
// orchestrator.
func Apply(s CheckoutSession, event SessionEvent) (CheckoutSession, error) {
	if s.Completed {
		return s, ErrInvalidStep
	}

	// While expired, only retry and backwards/clearing events may act.
	if s.Expired {
		switch event.(type) {
		case RetryEvent, ClearCartEvent, GoToSelectionEvent, TransactionClearedEvent:
		default:
			return s, ErrSessionExpired
		}
	}

	switch e := event.(type) {
	case AddItemEvent:
		if s.Step != StepSelection {
			return s, ErrInvalidStep
		}
		if err := s.Cart.AddItem(e.Item); err != nil {
			return s, err
		}
		s.Assignments.Rebuild(s.Cart.NominativeSlotCount(), s.DefaultCountry)
		return s, nil

	case ClearItemsByTypeEvent:
		if s.Step != StepSelection {
			return s, ErrInvalidStep
		}
		s.Cart.ClearItemsByType(e.Type)
		s.Assignments.Rebuild(s.Cart.NominativeSlotCount(), s.DefaultCountry)
		return s, nil

	case ClearCartEvent:
		s.Cart.Clear()
		s.Coupon = nil
		s.Assignments = AssignmentSet{}
		s.TransactionID = ""
		s.TransactionTotal = 0
		s.TransactionCurrency = ""
		s.Step = StepSelection
		return s, nil

	case SetCouponEvent:
		s.Coupon = e.Coupon
		return s, nil

	case SetAssignmentsEvent:
		s.Assignments = e.Assignments
		return s, nil

	case GoToSummaryEvent:
		if s.Step != StepSelection {
			return s, ErrInvalidStep
		}
		if !s.Cart.HasItems() {
			return s, ErrEmptyCart
		}
		if !e.Authenticated {
			return s, ErrUnauthenticated
		}
		s.Step = StepSummary
		return s, nil

	case GoBackEvent:
		switch s.Step {
		case StepPayment:
			s.Step = StepSummary
			s.TransactionID = ""
			s.TransactionTotal = 0
			s.TransactionCurrency = ""
		case StepSummary:
			s.Step = StepSelection
		default:
			return s, ErrInvalidStep
		}
		return s, nil

	case GoToSelectionEvent:
		if s.Step == StepPayment {
			// Leaving payment abandons the in-flight transaction.
			s.TransactionID = ""
			s.TransactionTotal = 0
			s.TransactionCurrency = ""
		}
		s.Step = StepSelection
		return s, nil

	case TransactionLinkedEvent:
		if s.Step != StepSummary {
			return s, ErrInvalidStep
		}
		if !s.NominativeComplete() {
			return s, ErrAssignmentsIncomplete
		}
		s.TransactionID = e.ID
		s.TransactionTotal = e.Total
		s.TransactionCurrency = e.Currency
		s.Step = StepPayment
		return s, nil

	case TransactionClearedEvent:
		s.TransactionID = ""
		s.TransactionTotal = 0
		s.TransactionCurrency = ""
		return s, nil

	case CompletedEvent:
		s.Cart.Clear()
		s.Coupon = nil
		s.Assignments = AssignmentSet{}
		s.TransactionID = e.TransactionID
		s.Completed = true
		return s, nil

	case ExpiredEvent:
		s.Expired = true
		return s, nil

	case RetryEvent:
		s.Expired = false
		s.TransactionID = ""
		s.TransactionTotal = 0
		s.TransactionCurrency = ""
		if s.Step == StepPayment {
			s.Step = StepSummary
		}
		return s, nil
	}

	return s, ErrInvalidInput
}
