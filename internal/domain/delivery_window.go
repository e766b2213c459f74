package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryWindow is a parsed "HH:mm-HH:mm" delivery time range.
type DeliveryWindow struct {
	From time.Time
	To   time.Time
}

// ParseDeliveryWindow parses a raw window string. Endpoints carry only
// hour and minute; the date part is the zero date.
func ParseDeliveryWindow(raw string) (*DeliveryWindow, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: delivery window %q must be HH:mm-HH:mm", ErrValidation, raw)
	}

	from, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid window start %q", ErrValidation, parts[0])
	}
	to, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid window end %q", ErrValidation, parts[1])
	}

	if !from.Before(to) {
		return nil, fmt.Errorf("%w: delivery window %q ends before it starts", ErrValidation, raw)
	}

	return &DeliveryWindow{From: from, To: to}, nil
}

func (w *DeliveryWindow) String() string {
	return w.From.Format("15:04") + "-" + w.To.Format("15:04")
}
