package services

import (
	"context"
	"log"

	"event-checkout-platform/internal/models"
)

// AssignmentEngine drives the lookup side of the nominative assignment
// state machine. The pure transitions live on models.AssignmentSet;
// this engine adds the network resolution with its local guards.
type AssignmentEngine struct {
	recipients     RecipientServiceInterface
	defaultCountry string
}

// NewAssignmentEngine creates a new assignment engine
func NewAssignmentEngine(recipients RecipientServiceInterface, defaultCountry string) *AssignmentEngine {
	return &AssignmentEngine{
		recipients:     recipients,
		defaultCountry: defaultCountry,
	}
}

// DefaultCountry returns the operator's default region code
func (e *AssignmentEngine) DefaultCountry() string {
	return e.defaultCountry
}

// BeginLookup validates a slot's phone number locally and marks the
// slot as searching. It fails without any network traffic when the
// number is too short for its country, when the number is the
// purchaser's own (self-transfers must use the me assignment), or when
// a lookup for the slot is already in flight.
func (e *AssignmentEngine) BeginLookup(set *models.AssignmentSet, index int, purchaser *models.User) (country, phone string, err error) {
	if index < 0 || index >= len(set.Assignments) {
		return "", "", models.ErrSlotOutOfRange
	}
	slot := &set.Assignments[index]
	if slot.IsSearching {
		return "", "", models.ErrLookupInFlight
	}

	country = models.NormalizePhone(slot.PhoneCountry)
	phone = models.NormalizePhone(slot.Phone)
	if len(phone) < models.ExpectedPhoneDigits(country) {
		return "", "", models.ErrPhoneTooShort
	}

	if purchaser != nil &&
		country == models.NormalizePhone(purchaser.PhoneCountry) &&
		phone == models.NormalizePhone(purchaser.Phone) {
		return "", "", models.ErrSelfSend
	}

	slot.IsSearching = true
	return country, phone, nil
}

// Resolve performs the network lookup begun by BeginLookup. Callers
// must not hold any session lock across this call.
func (e *AssignmentEngine) Resolve(ctx context.Context, country, phone string) (*RecipientLookupResult, error) {
	return e.recipients.Lookup(ctx, country, phone)
}

// ApplyLookupOutcome writes a lookup outcome back to the slot: found
// resolves it, no-match routes it to the manual-email path, and a
// transport failure falls open to the same path rather than leaving
// the slot stuck searching.
func ApplyLookupOutcome(set *models.AssignmentSet, index int, result *RecipientLookupResult, lookupErr error) error {
	if lookupErr != nil {
		log.Printf("Recipient lookup failed for slot %d: %v", index, lookupErr)
		return set.MarkNotFound(index)
	}
	if result != nil && result.Found && result.UserID != "" {
		return set.MarkFound(index, result.UserID)
	}
	return set.MarkNotFound(index)
}
