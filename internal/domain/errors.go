package domain

import "errors"

var (
	// ErrValidation marks malformed cart or price input rejected at the boundary.
	ErrValidation = errors.New("validation failed")

	// ErrSignature marks an inbound provider event that failed signature verification.
	ErrSignature = errors.New("signature verification failed")

	// ErrSessionCreation marks a failed checkout-session call to the payment provider.
	ErrSessionCreation = errors.New("session creation failed")

	// ErrRecordPersistence marks a rejected payment-record write.
	ErrRecordPersistence = errors.New("record persistence failed")

	// ErrNotificationDelivery marks a failed notification dispatch. Non-fatal.
	ErrNotificationDelivery = errors.New("notification delivery failed")
)
