// Package apperr defines the sentinel errors shared across Raido components.
package apperr

import "errors"

var (
	// ErrNotFound indicates a card fetch returned a non-success status.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID indicates an identifier failed sanitization or is not a
	// member of the card index. Always checked before any I/O.
	ErrInvalidID = errors.New("invalid card id")
	// ErrRateLimited indicates the request window is exhausted; no network
	// I/O was performed.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrInvalidContent indicates a card resource declared an unexpected
	// content type or its body could not be parsed at all.
	ErrInvalidContent = errors.New("invalid card content")
	// ErrIndexEmpty indicates the card index contained no valid identifiers.
	// Fatal during initialization.
	ErrIndexEmpty = errors.New("card index is empty")
	// ErrIndexUnavailable indicates the index resource could not be fetched.
	// Fatal during initialization.
	ErrIndexUnavailable = errors.New("card index unavailable")
	// ErrPanelLimit indicates the view stack is at its panel budget;
	// navigation is rejected with no state change.
	ErrPanelLimit = errors.New("maximum number of panels reached")
	// ErrNavigationState indicates a history entry was malformed or could
	// not be reconciled with the live stack.
	ErrNavigationState = errors.New("navigation state unclear")
)
