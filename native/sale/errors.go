package sale

import "errors"

var (
	// ErrSaleClosed indicates a contribution outside the sale window.
	ErrSaleClosed = errors.New("sale: outside sale window")
	// ErrLimitExceeded indicates a contribution over the per-purchaser limit.
	ErrLimitExceeded = errors.New("sale: purchase amount exceeds limit")
	// ErrCapExceeded indicates a contribution that would push aggregate
	// payments past the sale cap.
	ErrCapExceeded = errors.New("sale: cap exceeded")
	// ErrClaimDisabled indicates a release attempt before claiming is opened.
	ErrClaimDisabled = errors.New("sale: claim disabled")
	// ErrNothingToRelease indicates the purchaser has no vested tranche due.
	ErrNothingToRelease = errors.New("sale: nothing to release")
	// ErrUnauthorized indicates the caller lacks the owner capability.
	ErrUnauthorized = errors.New("sale: unauthorized")
	// ErrInvalidAmount indicates a zero, negative or nil payment amount.
	ErrInvalidAmount = errors.New("sale: amount must be positive")
	// ErrCapBelowCommitted indicates a schedule update that would lower the
	// cap below already-committed payments.
	ErrCapBelowCommitted = errors.New("sale: cap below committed total")
	// ErrInvalidSchedule indicates inconsistent window or price parameters.
	ErrInvalidSchedule = errors.New("sale: invalid schedule")

	errNilState = errors.New("sale: state not configured")
	errNilBank  = errors.New("sale: bank not configured")
)
