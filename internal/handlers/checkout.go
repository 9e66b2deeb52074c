package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"event-checkout-platform/internal/metrics"
	"event-checkout-platform/internal/middleware"
	"event-checkout-platform/internal/models"
	"event-checkout-platform/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// CheckoutHandler exposes the checkout session over a JSON API. Each
// browser gets its own orchestrator, resolved through the manager by a
// cookie-held session id.
type CheckoutHandler struct {
	manager *services.CheckoutManager
	store   sessions.Store
	metrics *metrics.CheckoutMetrics
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(manager *services.CheckoutManager, store sessions.Store, m *metrics.CheckoutMetrics) *CheckoutHandler {
	return &CheckoutHandler{
		manager: manager,
		store:   store,
		metrics: m,
	}
}

// RegisterRoutes mounts the checkout API under the given router. The
// lookup endpoint carries its own rate limit because every call fans
// out to the user directory.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, lookupLimiter *middleware.RateLimiter) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/event", h.SelectEvent)

		r.Post("/items", h.AddItem)
		r.Delete("/items", h.ClearItemsByType)
		r.Delete("/cart", h.ClearCart)
		r.Post("/coupon", h.SetCoupon)

		r.Get("/selection", h.GetSelection)
		r.Post("/selection/restore", h.RestoreSelection)

		r.Put("/assignments", h.SetAssignments)
		r.Post("/assignments/toggle-all", h.ToggleAllForMe)
		r.Post("/assignments/{index}/me", h.AssignMe)
		r.Post("/assignments/{index}/send", h.AssignSend)
		r.Put("/assignments/{index}/phone", h.SetAssignmentPhone)
		r.Put("/assignments/{index}/country", h.SetAssignmentCountry)
		r.Put("/assignments/{index}/email", h.SetAssignmentEmail)
		r.With(lookupLimiter.Middleware).Post("/assignments/{index}/lookup", h.LookupRecipient)

		r.Post("/summary", h.GoToSummary)
		r.Post("/back", h.GoBack)
		r.Post("/reopen", h.GoToSelection)
		r.Post("/payment", h.GoToPayment)

		r.Put("/transaction", h.SetTransaction)
		r.Delete("/transaction", h.ClearTransaction)

		r.Get("/timer", h.GetTimer)
		r.Post("/timer/retry", h.RetryTimer)
		r.Post("/timer/expire", h.ExpireTimer)
	})
}

// checkout resolves the caller's orchestrator, minting a session id
// cookie on first contact
func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) *services.CheckoutService {
	session, err := h.store.Get(r, "session")
	if err != nil {
		// A tampered cookie gets a fresh session rather than an error.
		log.Printf("Session error: %v", err)
	}

	id, ok := session.Values["checkout_id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		session.Values["checkout_id"] = id
		if err := session.Save(r, w); err != nil {
			log.Printf("Failed to save session: %v", err)
		}
	}

	return h.manager.Get(id)
}

// sessionView is the state snapshot returned by most endpoints
type sessionView struct {
	Session            models.CheckoutSession  `json:"session"`
	Pricing            models.PricingBreakdown `json:"pricing"`
	RemainingSeconds   int                     `json:"remaining_seconds"`
	NominativeComplete bool                    `json:"nominative_complete"`
}

func (h *CheckoutHandler) view(svc *services.CheckoutService) sessionView {
	v := svc.View()
	return sessionView{
		Session:            v.Session,
		Pricing:            v.Pricing,
		RemainingSeconds:   v.RemainingSeconds,
		NominativeComplete: v.NominativeComplete,
	}
}

func (h *CheckoutHandler) writeView(w http.ResponseWriter, svc *services.CheckoutService) {
	writeJSON(w, http.StatusOK, h.view(svc))
}

// GetSession returns the current checkout state
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, h.checkout(w, r))
}

// SelectEvent points the checkout at an event, resetting state when the
// event changed
func (h *CheckoutHandler) SelectEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID   string `json:"event_id"`
		EventName string `json:"event_name"`
		EventSlug string `json:"event_slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	svc.ResetForNewEvent(req.EventID, req.EventName, req.EventSlug)
	h.metrics.ObserveSessionStarted(req.EventID)
	h.writeView(w, svc)
}

// AddItem applies a quantity delta for one priced item
func (h *CheckoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	if err := svc.AddItem(item); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// ClearItemsByType removes every line of one item type
func (h *CheckoutHandler) ClearItemsByType(w http.ResponseWriter, r *http.Request) {
	t := models.ItemType(r.URL.Query().Get("type"))
	if t == "" {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	if err := svc.ClearItemsByType(t); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// ClearCart empties the cart and derived state
func (h *CheckoutHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.ClearCart(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// SetCoupon validates and applies a coupon code; an empty code clears
// the current coupon
func (h *CheckoutHandler) SetCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	if err := svc.SetCoupon(r.Context(), req.Code); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// GetSelection returns the compact selection token for one item type
// and remembers it in the browser session so a reload can restore it
func (h *CheckoutHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	t := models.ItemType(r.URL.Query().Get("type"))
	if t == "" {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	cart := svc.Session().Cart
	token := models.EncodeSelection(&cart, t)

	session, _ := h.store.Get(r, "session")
	session.Values["selection_"+string(t)] = token
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// RestoreSelection re-applies a previously saved selection token. The
// request carries the catalog entries the token's price ids refer to;
// entries missing from the token are left untouched.
func (h *CheckoutHandler) RestoreSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  models.ItemType   `json:"type"`
		Token string            `json:"token"`
		Items []models.CartItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		writeError(w, models.ErrInvalidInput)
		return
	}

	token := req.Token
	if token == "" {
		session, _ := h.store.Get(r, "session")
		token, _ = session.Values["selection_"+string(req.Type)].(string)
	}

	selection := models.DecodeSelection(token)
	svc := h.checkout(w, r)
	for _, item := range req.Items {
		qty, ok := selection[item.PriceID]
		if !ok {
			continue
		}
		item.Type = req.Type
		item.Quantity = qty
		if err := svc.AddItem(item); err != nil {
			writeError(w, err)
			return
		}
	}
	h.writeView(w, svc)
}

// SetAssignments replaces the whole assignment set
func (h *CheckoutHandler) SetAssignments(w http.ResponseWriter, r *http.Request) {
	var set models.AssignmentSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	if err := svc.SetNominativeAssignments(set); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// ToggleAllForMe flips every slot to me, or back to the seeded default
func (h *CheckoutHandler) ToggleAllForMe(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.ToggleAllForMe(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

func slotIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, models.ErrInvalidInput
	}
	return index, nil
}

// AssignMe marks one slot as the purchaser's own ticket
func (h *CheckoutHandler) AssignMe(w http.ResponseWriter, r *http.Request) {
	h.mutateSlot(w, r, func(svc *services.CheckoutService, index int) error {
		return svc.AssignMe(index)
	})
}

// AssignSend marks one slot as destined for someone else
func (h *CheckoutHandler) AssignSend(w http.ResponseWriter, r *http.Request) {
	h.mutateSlot(w, r, func(svc *services.CheckoutService, index int) error {
		return svc.AssignSend(index)
	})
}

// SetAssignmentPhone updates one slot's recipient phone number
func (h *CheckoutHandler) SetAssignmentPhone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}
	h.mutateSlot(w, r, func(svc *services.CheckoutService, index int) error {
		return svc.SetAssignmentPhone(index, req.Phone)
	})
}

// SetAssignmentCountry updates one slot's phone country code
func (h *CheckoutHandler) SetAssignmentCountry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneCountry string `json:"phone_country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}
	h.mutateSlot(w, r, func(svc *services.CheckoutService, index int) error {
		return svc.SetAssignmentPhoneCountry(index, req.PhoneCountry)
	})
}

// SetAssignmentEmail sets the manual delivery email on an unresolved
// slot
func (h *CheckoutHandler) SetAssignmentEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrInvalidInput)
		return
	}
	h.mutateSlot(w, r, func(svc *services.CheckoutService, index int) error {
		return svc.SetAssignmentEmail(index, req.Email)
	})
}

func (h *CheckoutHandler) mutateSlot(w http.ResponseWriter, r *http.Request, fn func(*services.CheckoutService, int) error) {
	index, err := slotIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}

	svc := h.checkout(w, r)
	if err := fn(svc, index); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// LookupRecipient resolves one slot's phone number against the user
// directory
func (h *CheckoutHandler) LookupRecipient(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	svc := h.checkout(w, r)
	if err := svc.LookupRecipient(r.Context(), index, user); err != nil {
		h.metrics.ObserveLookup("rejected")
		writeError(w, err)
		return
	}

	outcome := "not_found"
	session := svc.Session()
	if index < len(session.Assignments.Assignments) &&
		session.Assignments.Assignments[index].Type == models.AssignFound {
		outcome = "found"
	}
	h.metrics.ObserveLookup(outcome)
	h.writeView(w, svc)
}

// GoToSummary advances from selection to the order summary
func (h *CheckoutHandler) GoToSummary(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	svc := h.checkout(w, r)
	if err := svc.GoToSummary(user); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// GoBack steps backwards, clearing the linked transaction when leaving
// payment
func (h *CheckoutHandler) GoBack(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.GoBackCheckout(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// GoToSelection jumps back to the selection step from anywhere
func (h *CheckoutHandler) GoToSelection(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.GoToSelection(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// GoToPayment submits the transaction handshake and advances to the
// payment step, or completes immediately for free orders
func (h *CheckoutHandler) GoToPayment(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	outcome, err := svc.GoToPayment(r.Context())
	if err != nil {
		var rejected *services.TransactionRejectedError
		switch {
		case errors.As(err, &rejected):
			h.metrics.ObserveHandshake("rejected")
		case errors.Is(err, services.ErrTransactionUnavailable):
			h.metrics.ObserveHandshake("unavailable")
		}
		writeError(w, err)
		return
	}

	if outcome.Completed {
		h.metrics.ObserveHandshake("completed")
	} else {
		h.metrics.ObserveHandshake("linked")
	}

	writeJSON(w, http.StatusOK, struct {
		Outcome *services.CheckoutOutcome `json:"outcome"`
		sessionView
	}{outcome, h.view(svc)})
}

// SetTransaction links a server-issued transaction to the session
func (h *CheckoutHandler) SetTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Total    int    `json:"total"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, models.ErrInvalidInput)
		return
	}

	svc := h.checkout(w, r)
	if err := svc.SetTransaction(req.ID, req.Total, req.Currency); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// ClearTransaction unlinks the current transaction
func (h *CheckoutHandler) ClearTransaction(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.ClearTransaction(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

// GetTimer reports the countdown state
func (h *CheckoutHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining_seconds": svc.RemainingTime(),
		"expired":           svc.IsTimerExpired(),
	})
}

// ExpireTimer forces the countdown to zero, freezing the session
func (h *CheckoutHandler) ExpireTimer(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	svc.ExpireTimer()
	h.writeView(w, svc)
}

// RetryTimer re-arms an expired checkout so the user can try again
func (h *CheckoutHandler) RetryTimer(w http.ResponseWriter, r *http.Request) {
	svc := h.checkout(w, r)
	if err := svc.ResetTimer(); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, svc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Handshake
// rejections carry the server's message verbatim; everything else gets
// the sentinel's text.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var rejected *services.TransactionRejectedError
	switch {
	case errors.As(err, &rejected):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrSessionExpired):
		status = http.StatusGone
	case errors.Is(err, models.ErrSubmissionInFlight), errors.Is(err, models.ErrLookupInFlight):
		status = http.StatusConflict
	case errors.Is(err, services.ErrTransactionUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrAssignmentsIncomplete),
		errors.Is(err, models.ErrSelfSend),
		errors.Is(err, models.ErrPhoneTooShort),
		errors.Is(err, models.ErrSlotOutOfRange),
		errors.Is(err, models.ErrInvalidStep),
		errors.Is(err, models.ErrCouponInvalid),
		errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
