package models

import "errors"

// CouponType represents the discount rule a coupon applies
type CouponType string

const (
	CouponPercentage  CouponType = "PERCENTAGE"
	CouponFixedAmount CouponType = "FIXED_AMOUNT"
)

// Coupon represents a validated discount code as returned by the
// coupon-validation endpoint. Value is a percentage for PERCENTAGE
// coupons and an amount in cents for FIXED_AMOUNT coupons.
// RemainingUses is informational; enforcement happens server-side.
type Coupon struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Type          CouponType `json:"type"`
	Value         int        `json:"value"`
	RemainingUses int        `json:"remaining_uses,omitempty"`
}

// Validate validates the coupon data
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return errors.New("coupon code is required")
	}
	switch c.Type {
	case CouponPercentage, CouponFixedAmount:
	default:
		return errors.New("invalid coupon type")
	}
	if c.Value < 0 {
		return errors.New("coupon value cannot be negative")
	}
	return nil
}

// Discount returns the discount in cents this coupon applies to the
// given subtotal. The result never exceeds the subtotal and is never
// negative, so a fixed-amount coupon larger than the order cannot
// produce a negative payable amount.
func (c *Coupon) Discount(subtotal int) int {
	if c == nil || subtotal <= 0 {
		return 0
	}
	var discount int
	switch c.Type {
	case CouponPercentage:
		discount = subtotal * c.Value / 100
	case CouponFixedAmount:
		discount = c.Value
	default:
		return 0
	}
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
