package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers malformed or missing request fields; always locally
	// recoverable by the client correcting the request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingParameters is returned when a download link lacks one of its
	// four required query fields.
	ErrMissingParameters = errors.New("missing required parameters")
	// ErrLinkExpired is distinct from ErrInvalidSignature so that an expired
	// link maps to 410 rather than 403. It reveals nothing about the signature.
	ErrLinkExpired = errors.New("download link expired")
	// ErrInvalidSignature hides whether the secret, the fields, or the digest
	// were wrong. The reason is to avoid an oracle for forging links.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnknownProduct rejects product keys outside the closed catalog before
	// any backing store is consulted.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrFileNotFound means every configured blob source missed.
	ErrFileNotFound = errors.New("file not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	// ErrPaymentDeclined is returned when the gateway reports anything other
	// than a successful charge, or cannot be reached. No capability is ever
	// issued on this path.
	ErrPaymentDeclined = errors.New("payment verification failed")
	// ErrNotConfigured signals a missing required credential. Endpoints fail
	// loudly instead of degrading to an unauthenticated mode.
	ErrNotConfigured = errors.New("service not configured")
)
