package models

// PricingBreakdown represents a complete price calculation for a cart.
// All amounts are in cents.
type PricingBreakdown struct {
	Subtotal   int `json:"subtotal"`
	Discount   int `json:"discount"`
	ServiceFee int `json:"service_fee"`
	Total      int `json:"total"`
}

// ComputePricing derives the payable breakdown from the cart contents,
// an optional coupon, and the operator's service fee. It is pure and
// idempotent: the same inputs always produce the same breakdown, so it
// is safe to recompute on every read.
func ComputePricing(cart *Cart, coupon *Coupon, serviceFee int) PricingBreakdown {
	subtotal := 0
	if cart != nil {
		for _, item := range cart.Items {
			subtotal += item.UnitPrice * item.Quantity
		}
	}

	discount := coupon.Discount(subtotal)

	total := subtotal + serviceFee - discount
	if total < 0 {
		total = 0
	}

	return PricingBreakdown{
		Subtotal:   subtotal,
		Discount:   discount,
		ServiceFee: serviceFee,
		Total:      total,
	}
}
