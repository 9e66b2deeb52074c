package models

import "errors"

// Common errors used throughout the checkout core
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrAssignmentsIncomplete = errors.New("nominative assignments are incomplete")
	ErrSessionExpired        = errors.New("checkout session has expired")
	ErrSubmissionInFlight    = errors.New("a transaction submission is already in progress")
	ErrLookupInFlight        = errors.New("a recipient lookup is already in progress for this slot")
	ErrSelfSend              = errors.New("cannot send a ticket to your own phone number")
	ErrPhoneTooShort         = errors.New("phone number is too short for the selected country")
	ErrSlotOutOfRange        = errors.New("assignment slot index out of range")
	ErrInvalidStep           = errors.New("operation not allowed in the current checkout step")
	ErrCouponInvalid         = errors.New("coupon code is not valid")
	ErrInvalidInput          = errors.New("invalid input")
)
