package token

import "errors"

var (
	// ErrInsufficientBalance indicates the sender cannot cover the requested
	// amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrSupplyExceeded indicates a mint would push total supply past the cap.
	ErrSupplyExceeded = errors.New("token: exceeds max supply")
	// ErrUnauthorized indicates the caller lacks the capability required for a
	// privileged operation.
	ErrUnauthorized = errors.New("token: unauthorized")
	// ErrInvalidAmount indicates a zero, negative or nil amount.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrFeeTooHigh indicates a fee rate above the hard ceiling.
	ErrFeeTooHigh = errors.New("token: max fee is 20%")
	// ErrNothingCollected indicates a fee withdrawal with an empty collector
	// balance.
	ErrNothingCollected = errors.New("token: no fees collected")

	errNilState = errors.New("token: state not configured")
)
