package quoting

import "errors"

var (
	// ErrInvalidWeight is returned when a line item carries a negative weight.
	ErrInvalidWeight = errors.New("item weight must be a non-negative number of grams")
	// ErrInvalidQuantity is returned when a line item carries a non-positive quantity.
	ErrInvalidQuantity = errors.New("item quantity must be a positive integer")
	// ErrOrderTooHeavy is returned when the aggregate order weight exceeds the supported bound.
	ErrOrderTooHeavy = errors.New("order exceeds the maximum supported total weight")
)
