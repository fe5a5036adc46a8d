package models

import "errors"

var (
	// ErrInsufficientData marks a normal "not enough input" outcome.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidBook is returned for crossed or non-positive quotes.
	ErrInvalidBook = errors.New("invalid order book")
	// ErrModelFault wraps numeric failures while fitting or predicting.
	ErrModelFault = errors.New("model fault")
	// ErrInvalidRange is returned when a time range starts after it ends.
	ErrInvalidRange = errors.New("invalid time range")
	ErrNotFound     = errors.New("not found")
)
