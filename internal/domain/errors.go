package domain

import "errors"

var (
	// ErrInvalidInput marks malformed user input (grammar, numbers, dates)
	ErrInvalidInput = errors.New("invalid input")

	// ErrSymbolNotFound means the ticker did not resolve to any trading pair
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrPriceUnavailable means a live price could not be obtained.
	// Callers must treat it as transient and never substitute a default price.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrStoreUnavailable means the persistence layer could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")
)
