package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectionToken encoding keeps the per-category selected quantities in
// a compact "id:qty,id:qty" list so the current selection survives
// navigation and reload.

// EncodeSelection serializes the cart's selected quantities for one
// item type in cart order
func EncodeSelection(cart *Cart, t ItemType) string {
	var parts []string
	for _, item := range cart.Items {
		if item.Type == t && item.Quantity > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", item.PriceID, item.Quantity))
		}
	}
	return strings.Join(parts, ",")
}

// DecodeSelection parses an "id:qty,id:qty" token list into a
// priceID-to-quantity map. Malformed or non-positive entries are
// skipped rather than failing the whole token.
func DecodeSelection(token string) map[string]int {
	selection := make(map[string]int)
	if token == "" {
		return selection
	}
	for _, part := range strings.Split(token, ",") {
		id, qtyStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || id == "" {
			continue
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty <= 0 {
			continue
		}
		selection[id] = qty
	}
	return selection
}
