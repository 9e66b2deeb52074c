package models

import (
	"errors"
	"regexp"
	"strings"
)

// AssignmentType represents the resolution state of one nominative slot
type AssignmentType string

const (
	// AssignMe marks a unit the purchaser keeps for themselves
	AssignMe AssignmentType = "me"
	// AssignSend marks a unit destined for someone else whose phone
	// number has not been resolved yet. It never counts as complete.
	AssignSend AssignmentType = "send"
	// AssignFound marks a unit resolved to an existing user by lookup
	AssignFound AssignmentType = "found"
	// AssignNotFound marks a unit whose recipient has no account and
	// will be reached by email instead
	AssignNotFound AssignmentType = "notfound"
)

// NominativeAssignment maps one slot of a nominative cart item to a
// delivery target. ItemIndex addresses the slot within the flattened
// slot list derived from the cart in cart order.
type NominativeAssignment struct {
	ItemIndex    int            `json:"item_index"`
	Type         AssignmentType `json:"assignment_type"`
	Phone        string         `json:"phone,omitempty"`
	PhoneCountry string         `json:"phone_country,omitempty"`
	Email        string         `json:"email,omitempty"`
	ToUserID     string         `json:"to_user_id,omitempty"`
	IsSearching  bool           `json:"is_searching,omitempty"`
}

var assignmentEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsComplete reports whether this assignment satisfies the checkout
// gate. A send assignment is never complete: a phone number alone,
// without a lookup, does not identify a recipient.
func (a *NominativeAssignment) IsComplete() bool {
	switch a.Type {
	case AssignMe:
		return true
	case AssignFound:
		return a.ToUserID != ""
	case AssignNotFound:
		return a.Phone != "" && assignmentEmailRegex.MatchString(a.Email)
	default:
		return false
	}
}

// NormalizePhone strips every non-digit character from a phone number
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Expected national-number digit counts per dialing code. Countries not
// listed fall back to defaultPhoneDigits.
var phoneDigitCounts = map[string]int{
	"1":   10, // US/Canada
	"33":  9,  // France
	"34":  9,  // Spain
	"39":  9,  // Italy
	"44":  10, // UK
	"49":  10, // Germany
	"351": 9,  // Portugal
}

const defaultPhoneDigits = 9

// ExpectedPhoneDigits returns the national-number length expected for
// a dialing code
func ExpectedPhoneDigits(country string) int {
	if n, ok := phoneDigitCounts[NormalizePhone(country)]; ok {
		return n
	}
	return defaultPhoneDigits
}

// AssignmentSet is the flat, index-addressed list of slot assignments
// for the nominative items of one cart. It is rebuilt deterministically
// from cart contents on every structural cart change; assignments are
// keyed by derived index, not object identity.
type AssignmentSet struct {
	Assignments []NominativeAssignment `json:"assignments"`
}

// Seed initializes one assignment per slot. The first slot defaults to
// the purchaser; the remaining slots start as unsent transfers with the
// operator's default country code.
func (s *AssignmentSet) Seed(slotCount int, defaultCountry string) {
	s.Assignments = make([]NominativeAssignment, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		if i == 0 {
			s.Assignments = append(s.Assignments, NominativeAssignment{ItemIndex: i, Type: AssignMe})
			continue
		}
		s.Assignments = append(s.Assignments, NominativeAssignment{
			ItemIndex:    i,
			Type:         AssignSend,
			PhoneCountry: defaultCountry,
		})
	}
}

// Rebuild reconciles the set with a new slot count after a structural
// cart change. Existing assignments keep their data while their index
// is still in range; new slots are seeded, excess ones dropped.
func (s *AssignmentSet) Rebuild(slotCount int, defaultCountry string) {
	if slotCount == 0 {
		s.Assignments = nil
		return
	}
	if len(s.Assignments) == 0 {
		s.Seed(slotCount, defaultCountry)
		return
	}
	if len(s.Assignments) > slotCount {
		s.Assignments = s.Assignments[:slotCount]
		return
	}
	for i := len(s.Assignments); i < slotCount; i++ {
		s.Assignments = append(s.Assignments, NominativeAssignment{
			ItemIndex:    i,
			Type:         AssignSend,
			PhoneCountry: defaultCountry,
		})
	}
}

func (s *AssignmentSet) slot(index int) (*NominativeAssignment, error) {
	if index < 0 || index >= len(s.Assignments) {
		return nil, ErrSlotOutOfRange
	}
	return &s.Assignments[index], nil
}

// SetMe marks a slot as kept by the purchaser, discarding any
// recipient data entered so far
func (s *AssignmentSet) SetMe(index int) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	*a = NominativeAssignment{ItemIndex: index, Type: AssignMe}
	return nil
}

// SetSend marks a slot as destined for someone else. Identity fields
// are cleared and the country defaults to the operator's region.
func (s *AssignmentSet) SetSend(index int, defaultCountry string) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	*a = NominativeAssignment{
		ItemIndex:    index,
		Type:         AssignSend,
		PhoneCountry: defaultCountry,
	}
	return nil
}

// SetPhone records a phone-number edit. Editing the number of a
// resolved slot invalidates the resolution and reverts it to send.
func (s *AssignmentSet) SetPhone(index int, phone string) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	a.Phone = phone
	s.invalidateResolution(a)
	return nil
}

// SetPhoneCountry records a country edit, with the same invalidation
// rule as SetPhone
func (s *AssignmentSet) SetPhoneCountry(index int, country string) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	a.PhoneCountry = country
	s.invalidateResolution(a)
	return nil
}

func (s *AssignmentSet) invalidateResolution(a *NominativeAssignment) {
	if a.Type == AssignFound || a.Type == AssignNotFound {
		a.Type = AssignSend
		a.ToUserID = ""
		a.Email = ""
	}
}

// MarkFound records a successful recipient lookup for a slot
func (s *AssignmentSet) MarkFound(index int, toUserID string) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	a.Type = AssignFound
	a.ToUserID = toUserID
	a.Email = ""
	a.IsSearching = false
	return nil
}

// MarkNotFound routes a slot to the manual-email path after a lookup
// returned no match (or failed in transport)
func (s *AssignmentSet) MarkNotFound(index int) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	a.Type = AssignNotFound
	a.ToUserID = ""
	a.Email = ""
	a.IsSearching = false
	return nil
}

// SetEmail records the manual email for a notfound slot
func (s *AssignmentSet) SetEmail(index int, email string) error {
	a, err := s.slot(index)
	if err != nil {
		return err
	}
	if a.Type != AssignNotFound {
		return errors.New("email can only be set on a notfound assignment")
	}
	a.Email = email
	return nil
}

// ToggleAllForMe flips the whole set in bulk: if every slot is already
// the purchaser's, all slots become unsent transfers; otherwise every
// slot is forced to the purchaser.
func (s *AssignmentSet) ToggleAllForMe(defaultCountry string) {
	allMe := len(s.Assignments) > 0
	for _, a := range s.Assignments {
		if a.Type != AssignMe {
			allMe = false
			break
		}
	}

	for i := range s.Assignments {
		if allMe {
			s.Assignments[i] = NominativeAssignment{
				ItemIndex:    i,
				Type:         AssignSend,
				PhoneCountry: defaultCountry,
			}
		} else {
			s.Assignments[i] = NominativeAssignment{ItemIndex: i, Type: AssignMe}
		}
	}
}

// Complete reports whether the set satisfies the checkout gate for a
// cart with slotCount nominative slots: the assignment count matches
// exactly and every assignment is individually complete. A cart with
// no nominative slots is always complete.
func (s *AssignmentSet) Complete(slotCount int) bool {
	if slotCount == 0 {
		return true
	}
	if len(s.Assignments) != slotCount {
		return false
	}
	for i := range s.Assignments {
		if !s.Assignments[i].IsComplete() {
			return false
		}
	}
	return true
}

// Attendee is the per-slot recipient record sent with a transaction
// request for nominative items
type Attendee struct {
	IsForMe      bool   `json:"is_for_me"`
	ToUserID     string `json:"to_user_id,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PhoneCountry string `json:"phone_country,omitempty"`
	Email        string `json:"email,omitempty"`
}

// DeriveAttendees slices the flattened slot list into per-item attendee
// lists, keyed by the item's position among the cart's nominative items.
// An item's slots are the global range [start, start+quantity) where
// start is the summed quantity of all preceding nominative items in
// cart order. Missing or unresolved assignments default to the
// purchaser; the completeness gate makes that unreachable in practice,
// but derivation must never fail.
func DeriveAttendees(cart *Cart, set *AssignmentSet) [][]Attendee {
	nominative := cart.NominativeItems()
	result := make([][]Attendee, len(nominative))

	start := 0
	for i, item := range nominative {
		attendees := make([]Attendee, 0, item.Quantity)
		for idx := start; idx < start+item.Quantity; idx++ {
			attendees = append(attendees, attendeeForSlot(set, idx))
		}
		result[i] = attendees
		start += item.Quantity
	}
	return result
}

func attendeeForSlot(set *AssignmentSet, index int) Attendee {
	if set == nil || index < 0 || index >= len(set.Assignments) {
		return Attendee{IsForMe: true}
	}
	a := set.Assignments[index]
	switch a.Type {
	case AssignFound:
		return Attendee{IsForMe: false, ToUserID: a.ToUserID}
	case AssignNotFound:
		return Attendee{
			IsForMe:      false,
			Phone:        a.Phone,
			PhoneCountry: a.PhoneCountry,
			Email:        a.Email,
		}
	default:
		return Attendee{IsForMe: true}
	}
}
