package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TransactionConfig represents the transaction API configuration
type TransactionConfig struct {
	BaseURL string
	APIKey  string
}

// TransactionService performs the handshake that converts a priced
// cart into a server-tracked transaction
type TransactionService struct {
	config TransactionConfig
	client *http.Client
}

// NewTransactionService creates a new transaction service
func NewTransactionService(config TransactionConfig) *TransactionService {
	return &TransactionService{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Create submits the transaction request. A server rejection comes back
// as a result with Status "error" and the server's message; a returned
// error means the exchange itself failed in transport.
func (s *TransactionService) Create(ctx context.Context, req *CreateTransactionRequest) (*TransactionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/transactions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transaction request failed: %w", err)
	}
	defer resp.Body.Close()

	var result TransactionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if result.Message == "" {
			return nil, fmt.Errorf("transaction failed with status %d", resp.StatusCode)
		}
		result.Status = "error"
	}
	return &result, nil
}
