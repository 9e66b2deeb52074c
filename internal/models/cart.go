package models

import "errors"

// ItemType classifies a cart line by catalog category
type ItemType string

const (
	ItemTicket      ItemType = "ticket"
	ItemGuestlist   ItemType = "guestlist"
	ItemReservation ItemType = "reservation"
	ItemPromotion   ItemType = "promotion"
	ItemProduct     ItemType = "product"
)

// CartItem represents one priced line in the shopping cart. UnitPrice is in cents.
type CartItem struct {
	ID           string   `json:"id"`
	PriceID      string   `json:"price_id"`
	Type         ItemType `json:"type"`
	Name         string   `json:"name"`
	PriceName    string   `json:"price_name,omitempty"`
	UnitPrice    int      `json:"unit_price"`
	Quantity     int      `json:"quantity"`
	IsNominative bool     `json:"is_nominative"`
	MaxPersons   int      `json:"max_persons,omitempty"`
}

// Validate validates a cart item before it enters the cart
func (i *CartItem) Validate() error {
	if i.ID == "" {
		return errors.New("item id is required")
	}
	if i.PriceID == "" {
		return errors.New("item price id is required")
	}
	if err := validateItemType(i.Type); err != nil {
		return err
	}
	if i.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}
	if i.Quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	return nil
}

func validateItemType(t ItemType) error {
	switch t {
	case ItemTicket, ItemGuestlist, ItemReservation, ItemPromotion, ItemProduct:
		return nil
	default:
		return errors.New("invalid item type")
	}
}

// Cart holds the selected line items for one event. No two items share
// the same (ID, PriceID) pair; all totals are derived by summation.
type Cart struct {
	Items []CartItem `json:"items"`
}

// AddItem inserts the item or, if an item with the same (ID, PriceID)
// already exists, adds the quantity to it. Callers that want to replace
// a category selection rather than accumulate must call ClearItemsByType
// first. A delta that would drop the quantity to zero or below removes
// the line entirely; negative quantities are never observable.
func (c *Cart) AddItem(item CartItem) error {
	if item.ID == "" || item.PriceID == "" {
		return errors.New("item id and price id are required")
	}
	if err := validateItemType(item.Type); err != nil {
		return err
	}
	if item.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}

	for i := range c.Items {
		if c.Items[i].ID == item.ID && c.Items[i].PriceID == item.PriceID {
			c.Items[i].Quantity += item.Quantity
			if c.Items[i].Quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			}
			return nil
		}
	}

	if item.Quantity <= 0 {
		// A removal delta for a line that does not exist is a no-op.
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// ClearItemsByType removes all items of the given type. Used before
// re-deriving the cart from a catalog selection screen so stale
// selections do not double-count.
func (c *Cart) ClearItemsByType(t ItemType) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.Type != t {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// Clear removes every item from the cart
func (c *Cart) Clear() {
	c.Items = nil
}

// HasItems returns true if at least one item with quantity > 0 exists
func (c *Cart) HasItems() bool {
	for _, item := range c.Items {
		if item.Quantity > 0 {
			return true
		}
	}
	return false
}

// TotalQuantity returns the summed quantity across all items
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// QuantityByType returns the summed quantity for one item type
func (c *Cart) QuantityByType(t ItemType) int {
	total := 0
	for _, item := range c.Items {
		if item.Type == t {
			total += item.Quantity
		}
	}
	return total
}

// NominativeItems returns the nominative lines in cart order
func (c *Cart) NominativeItems() []CartItem {
	var items []CartItem
	for _, item := range c.Items {
		if item.IsNominative {
			items = append(items, item)
		}
	}
	return items
}

// NominativeSlotCount returns the number of individually-assignable
// units across all nominative items
func (c *Cart) NominativeSlotCount() int {
	count := 0
	for _, item := range c.Items {
		if item.IsNominative {
			count += item.Quantity
		}
	}
	return count
}
