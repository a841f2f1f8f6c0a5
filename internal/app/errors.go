package app

import "errors"

var (
	// ErrNotFound is the store-level miss, wrapped by the errors below.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken means the scheduling token resolves to no candidate.
	ErrInvalidToken = errors.New("invalid scheduling token")

	// ErrNotAvailable means the slot does not exist or is already booked.
	ErrNotAvailable = errors.New("slot not available")

	// ErrNoCredential means the owner has no usable credential for the
	// provider. Callers surface "please connect", not a failure.
	ErrNoCredential = errors.New("calendar not connected")

	// ErrUnauthorized is how providers normalize a 401-class response.
	ErrUnauthorized = errors.New("provider rejected authorization")
)
