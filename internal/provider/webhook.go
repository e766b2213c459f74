package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

// EventTypeSessionCompleted is sent when a hosted checkout session has
// been paid.
const EventTypeSessionCompleted = "checkout.session.completed"

// DefaultTolerance is the accepted clock skew between the signature
// timestamp and the receiving host.
const DefaultTolerance = 5 * time.Minute

const signatureHeader = "Payment-Signature"

// Event is a verified provider notification.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ConstructEvent verifies the header-borne signature
// ("t=<unix>,v1=<hex>", HMAC-SHA256 over "<t>.<payload>") against the
// shared secret and parses the payload. Nothing is parsed before the
// signature checks out.
func ConstructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > tolerance || age < -tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrSignature)
	}

	expected := computeSignature(timestamp, payload, secret)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no matching v1 signature", domain.ErrSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event payload", domain.ErrValidation)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: event has no type", domain.ErrValidation)
	}

	return &event, nil
}

// SignPayload produces a signature header for a payload, the inverse of
// ConstructEvent. Used by tests and local webhook replay tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(ts, payload, secret))
}

// SignatureHeader returns the header name carrying the signature.
func SignatureHeader() string {
	return signatureHeader
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", domain.ErrSignature)
	}

	var (
		timestamp  int64 = -1
		signatures []string
	)

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return 0, nil, fmt.Errorf("%w: malformed signature header", domain.ErrSignature)
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed signature timestamp", domain.ErrSignature)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, parts[1])
		}
		// Unknown schemes are ignored so the provider can roll keys.
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: signature header missing t or v1", domain.ErrSignature)
	}
	return timestamp, signatures, nil
}

func computeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
