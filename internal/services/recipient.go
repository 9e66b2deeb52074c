package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RecipientConfig represents the recipient-lookup API configuration
type RecipientConfig struct {
	BaseURL string
	APIKey  string
}

// RecipientService resolves phone numbers to platform users via the
// storefront user-lookup API
type RecipientService struct {
	config RecipientConfig
	client *http.Client
}

// NewRecipientService creates a new recipient lookup service
func NewRecipientService(config RecipientConfig) *RecipientService {
	return &RecipientService{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type recipientLookupRequest struct {
	PhoneCountry string `json:"phone_country"`
	Phone        string `json:"phone"`
}

type recipientLookupResponse struct {
	Found  bool   `json:"found"`
	UserID string `json:"user_id,omitempty"`
}

// Lookup asks the API whether a user exists for the given phone number
func (s *RecipientService) Lookup(ctx context.Context, phoneCountry, phone string) (*RecipientLookupResult, error) {
	body, err := json.Marshal(recipientLookupRequest{
		PhoneCountry: phoneCountry,
		Phone:        phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/users/lookup", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &RecipientLookupResult{Found: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup failed with status %d", resp.StatusCode)
	}

	var lookupResp recipientLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	return &RecipientLookupResult{Found: lookupResp.Found, UserID: lookupResp.UserID}, nil
}
