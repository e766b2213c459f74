package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated      CheckoutStatus = "INITIATED"
	CheckoutStatusSessionCreated CheckoutStatus = "SESSION_CREATED"
	CheckoutStatusCompleted      CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to next is legal.
// FAILED is reachable from any non-terminal state.
func CanTransitionTo(s, next CheckoutStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == CheckoutStatusFailed {
		return true
	}
	switch s {
	case CheckoutStatusInitiated:
		return next == CheckoutStatusSessionCreated
	case CheckoutStatusSessionCreated:
		// Payment confirmation completes the session in a single
		// transaction, so there is no intermediate paid state.
		return next == CheckoutStatusCompleted
	default:
		return false
	}
}

type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
	CustomerEmail  string
	// Discount is the already-computed loyalty discount in major units,
	// subtracted from the undiscounted cart total.
	Discount float64
}

type CheckoutResponse struct {
	CheckoutID  string         `json:"checkout_id"`
	Status      CheckoutStatus `json:"status"`
	RedirectURL string         `json:"redirect_url,omitempty"`
}
