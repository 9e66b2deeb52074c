package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"event-checkout-platform/internal/models"
)

// Mock collaborators used by tests and by local development when no
// API credentials are configured.

// MockAuthService resolves session tokens from a fixed map
type MockAuthService struct {
	mu    sync.Mutex
	Users map[string]*models.User
}

// NewMockAuthService creates a mock auth service
func NewMockAuthService() *MockAuthService {
	log.Println("Auth service: using mock (no auth API credentials provided)")
	return &MockAuthService{Users: make(map[string]*models.User)}
}

// AddSession registers a token-to-user mapping
func (m *MockAuthService) AddSession(token string, user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[token] = user
}

// ValidateSession resolves a session token to a purchaser
func (m *MockAuthService) ValidateSession(sessionToken string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[sessionToken]
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return user, nil
}

// MockRecipientService resolves phone numbers from a fixed directory
type MockRecipientService struct {
	mu sync.Mutex
	// Users maps "country:phone" (normalized digits) to a user id
	Users map[string]string
	Err   error
	Calls int
}

// NewMockRecipientService creates a mock recipient service
func NewMockRecipientService() *MockRecipientService {
	return &MockRecipientService{Users: make(map[string]string)}
}

// Lookup resolves a phone number against the directory
func (m *MockRecipientService) Lookup(_ context.Context, phoneCountry, phone string) (*RecipientLookupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	key := fmt.Sprintf("%s:%s", phoneCountry, phone)
	if userID, ok := m.Users[key]; ok {
		return &RecipientLookupResult{Found: true, UserID: userID}, nil
	}
	return &RecipientLookupResult{Found: false}, nil
}

// CallCount returns how many lookups actually went out
func (m *MockRecipientService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockCouponService validates codes from a fixed map
type MockCouponService struct {
	mu      sync.Mutex
	Coupons map[string]*models.Coupon
	Err     error
}

// NewMockCouponService creates a mock coupon service
func NewMockCouponService() *MockCouponService {
	return &MockCouponService{Coupons: make(map[string]*models.Coupon)}
}

// Validate checks a code against the configured coupons
func (m *MockCouponService) Validate(_ context.Context, code string) (*CouponValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if coupon, ok := m.Coupons[code]; ok {
		return &CouponValidationResult{Valid: true, Coupon: coupon}, nil
	}
	return &CouponValidationResult{Valid: false, Message: "coupon not found"}, nil
}

// MockTransactionService returns a configured handshake result
type MockTransactionService struct {
	mu          sync.Mutex
	Result      *TransactionResult
	Err         error
	Calls       int
	LastRequest *CreateTransactionRequest
}

// NewMockTransactionService creates a mock transaction service that
// accepts everything as a pending payment by default
func NewMockTransactionService() *MockTransactionService {
	return &MockTransactionService{
		Result: &TransactionResult{
			Status: "success",
			Transaction: TransactionData{
				ID:         "mock-tx-1",
				Status:     TransactionStatusPending,
				TotalPrice: 1,
				Currency:   "EUR",
			},
		},
	}
}

// Create records the request and returns the configured result
func (m *MockTransactionService) Create(_ context.Context, req *CreateTransactionRequest) (*TransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastRequest = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// CallCount returns how many handshakes were submitted
func (m *MockTransactionService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
