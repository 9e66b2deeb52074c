package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"event-checkout-platform/internal/models"
)

// AuthConfig represents the session-validation API configuration
type AuthConfig struct {
	BaseURL string
	APIKey  string
}

// AuthService resolves browser session tokens to purchasers via the
// storefront auth API
type AuthService struct {
	config AuthConfig
	client *http.Client
}

// NewAuthService creates a new auth service
func NewAuthService(config AuthConfig) *AuthService {
	return &AuthService{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionValidationResponse struct {
	UserID       string `json:"user_id"`
	FirstName    string `json:"first_name"`
	Phone        string `json:"phone"`
	PhoneCountry string `json:"phone_country"`
}

// ValidateSession resolves a session token to the purchaser it belongs
// to. Unknown or expired tokens come back as ErrUnauthenticated.
func (s *AuthService) ValidateSession(sessionToken string) (*models.User, error) {
	req, err := http.NewRequest(http.MethodGet, s.config.BaseURL+"/auth/session", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("X-Session-Token", sessionToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session validation failed with status %d", resp.StatusCode)
	}

	var sessionResp sessionValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	return &models.User{
		ID:           sessionResp.UserID,
		FirstName:    sessionResp.FirstName,
		Phone:        sessionResp.Phone,
		PhoneCountry: sessionResp.PhoneCountry,
	}, nil
}
