package services

import (
	"context"

	"event-checkout-platform/internal/models"
)

// AuthServiceInterface defines the contract with the auth collaborator.
// Protocol internals (login flows, token issuance) live outside this
// core; the checkout only needs to resolve a session to a purchaser.
type AuthServiceInterface interface {
	ValidateSession(sessionToken string) (*models.User, error)
}

// RecipientLookupResult is the outcome of a recipient lookup
type RecipientLookupResult struct {
	Found  bool   `json:"found"`
	UserID string `json:"user_id,omitempty"`
}

// RecipientServiceInterface defines the recipient lookup collaborator
type RecipientServiceInterface interface {
	Lookup(ctx context.Context, phoneCountry, phone string) (*RecipientLookupResult, error)
}

// CouponValidationResult is the outcome of a coupon validation call
type CouponValidationResult struct {
	Valid   bool           `json:"valid"`
	Coupon  *models.Coupon `json:"coupon,omitempty"`
	Message string         `json:"message,omitempty"`
}

// CouponServiceInterface defines the coupon validation collaborator
type CouponServiceInterface interface {
	Validate(ctx context.Context, code string) (*CouponValidationResult, error)
}

// TransactionItemRequest is one cart line converted for the handshake.
// Attendees is populated for nominative items only.
type TransactionItemRequest struct {
	ItemID    string            `json:"item_id"`
	PriceID   string            `json:"price_id"`
	Type      models.ItemType   `json:"type"`
	Quantity  int               `json:"quantity"`
	Attendees []models.Attendee `json:"attendees,omitempty"`
}

// CreateTransactionRequest converts a priced, assignment-resolved cart
// into a server transaction request
type CreateTransactionRequest struct {
	EventID    string                   `json:"event_id"`
	CouponCode string                   `json:"coupon_code,omitempty"`
	Items      []TransactionItemRequest `json:"items"`
}

// Transaction statuses reported by the transaction endpoint
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
)

// TransactionData describes the server-issued transaction
type TransactionData struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	TotalPrice int    `json:"total_price"`
	Currency   string `json:"currency"`
}

// TransactionResult is the handshake outcome. Status is "success" or
// "error"; Message carries the server-provided rejection reason.
type TransactionResult struct {
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Transaction TransactionData `json:"transaction"`
}

// TransactionServiceInterface defines the transaction collaborator
type TransactionServiceInterface interface {
	Create(ctx context.Context, req *CreateTransactionRequest) (*TransactionResult, error)
}
