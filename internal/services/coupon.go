package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"event-checkout-platform/internal/models"
)

// CouponConfig represents the coupon validation API configuration
type CouponConfig struct {
	BaseURL string
	APIKey  string
}

// CouponService validates discount codes against the storefront API
type CouponService struct {
	config CouponConfig
	client *http.Client
}

// NewCouponService creates a new coupon validation service
func NewCouponService(config CouponConfig) *CouponService {
	return &CouponService{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type couponValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Coupon  *struct {
		ID            string `json:"id"`
		Code          string `json:"code"`
		Type          string `json:"type"`
		Value         int    `json:"value"`
		RemainingUses int    `json:"remaining_uses"`
	} `json:"coupon,omitempty"`
}

// Validate checks a coupon code with the server. An invalid code is a
// normal outcome, not an error; errors mean the call itself failed.
func (s *CouponService) Validate(ctx context.Context, code string) (*CouponValidationResult, error) {
	endpoint := fmt.Sprintf("%s/coupons/validate?code=%s", s.config.BaseURL, url.QueryEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create coupon request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coupon validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coupon validation failed with status %d", resp.StatusCode)
	}

	var validateResp couponValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&validateResp); err != nil {
		return nil, fmt.Errorf("failed to decode coupon response: %w", err)
	}

	result := &CouponValidationResult{Valid: validateResp.Valid, Message: validateResp.Message}
	if validateResp.Valid && validateResp.Coupon != nil {
		result.Coupon = &models.Coupon{
			ID:            validateResp.Coupon.ID,
			Code:          validateResp.Coupon.Code,
			Type:          models.CouponType(validateResp.Coupon.Type),
			Value:         validateResp.Coupon.Value,
			RemainingUses: validateResp.Coupon.RemainingUses,
		}
		if err := result.Coupon.Validate(); err != nil {
			return nil, fmt.Errorf("coupon response is invalid: %w", err)
		}
	}
	return result, nil
}
