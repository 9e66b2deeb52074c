package models

import "testing"

func ticketItem(id, priceID string, price, qty int, nominative bool) CartItem {
	return CartItem{
		ID:           id,
		PriceID:      priceID,
		Type:         ItemTicket,
		Name:         "General Admission",
		UnitPrice:    price,
		Quantity:     qty,
		IsNominative: nominative,
	}
}

func TestCartItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    CartItem
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid item",
			item:    ticketItem("evt-1", "price-1", 2500, 2, false),
			wantErr: false,
		},
		{
			name:    "missing id",
			item:    CartItem{PriceID: "price-1", Type: ItemTicket, UnitPrice: 100, Quantity: 1},
			wantErr: true,
			errMsg:  "item id is required",
		},
		{
			name:    "missing price id",
			item:    CartItem{ID: "evt-1", Type: ItemTicket, UnitPrice: 100, Quantity: 1},
			wantErr: true,
			errMsg:  "item price id is required",
		},
		{
			name:    "invalid type",
			item:    CartItem{ID: "evt-1", PriceID: "price-1", Type: "voucher", UnitPrice: 100, Quantity: 1},
			wantErr: true,
			errMsg:  "invalid item type",
		},
		{
			name:    "negative price",
			item:    ticketItem("evt-1", "price-1", -100, 1, false),
			wantErr: true,
			errMsg:  "unit price cannot be negative",
		},
		{
			name:    "zero quantity",
			item:    ticketItem("evt-1", "price-1", 100, 0, false),
			wantErr: true,
			errMsg:  "quantity must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CartItem.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("CartItem.Validate() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestCart_AddItem_MergesByKey(t *testing.T) {
	cart := &Cart{}

	if err := cart.AddItem(ticketItem("t1", "p1", 1000, 2, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if err := cart.AddItem(ticketItem("t1", "p1", 1000, 3, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if err := cart.AddItem(ticketItem("t1", "p2", 2000, 1, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Errorf("expected merged quantity 5, got %d", cart.Items[0].Quantity)
	}
	if cart.TotalQuantity() != 6 {
		t.Errorf("expected total quantity 6, got %d", cart.TotalQuantity())
	}
}

func TestCart_AddItem_NegativeDeltaClampsAtZero(t *testing.T) {
	cart := &Cart{}

	if err := cart.AddItem(ticketItem("t1", "p1", 1000, 2, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if err := cart.AddItem(ticketItem("t1", "p1", 1000, -5, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	if len(cart.Items) != 0 {
		t.Errorf("expected line removed at zero, got %d lines", len(cart.Items))
	}
	if cart.HasItems() {
		t.Error("HasItems() should be false after removal")
	}

	// Removal delta against a missing line is a no-op.
	if err := cart.AddItem(ticketItem("t9", "p9", 1000, -1, false)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected no line created by a removal delta, got %d", len(cart.Items))
	}
}

func TestCart_ClearItemsByType(t *testing.T) {
	cart := &Cart{}
	cart.AddItem(ticketItem("t1", "p1", 1000, 2, false))
	cart.AddItem(CartItem{ID: "g1", PriceID: "gp1", Type: ItemGuestlist, UnitPrice: 0, Quantity: 4})
	cart.AddItem(CartItem{ID: "r1", PriceID: "rp1", Type: ItemReservation, UnitPrice: 5000, Quantity: 1, MaxPersons: 8})

	cart.ClearItemsByType(ItemGuestlist)

	if cart.QuantityByType(ItemGuestlist) != 0 {
		t.Errorf("expected guestlist quantity 0, got %d", cart.QuantityByType(ItemGuestlist))
	}
	if cart.QuantityByType(ItemTicket) != 2 || cart.QuantityByType(ItemReservation) != 1 {
		t.Error("clearing one type must not touch other types")
	}
}

func TestCart_NominativeSlotCount(t *testing.T) {
	cart := &Cart{}
	cart.AddItem(ticketItem("t1", "p1", 1000, 2, true))
	cart.AddItem(ticketItem("t2", "p2", 1500, 3, true))
	cart.AddItem(CartItem{ID: "pr1", PriceID: "pp1", Type: ItemProduct, UnitPrice: 500, Quantity: 10})

	if got := cart.NominativeSlotCount(); got != 5 {
		t.Errorf("NominativeSlotCount() = %d, want 5", got)
	}
	if got := len(cart.NominativeItems()); got != 2 {
		t.Errorf("NominativeItems() returned %d items, want 2", got)
	}
}
