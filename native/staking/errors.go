package staking

import "errors"

var (
	// ErrZeroAmount indicates a stake or unstake with no principal.
	ErrZeroAmount = errors.New("staking: cannot stake 0")
	// ErrOwnershipMismatch indicates a withdrawal of principal the participant
	// does not hold.
	ErrOwnershipMismatch = errors.New("staking: requested principal not held")
	// ErrUnauthorized indicates the caller lacks the owner capability.
	ErrUnauthorized = errors.New("staking: unauthorized")
	// ErrFeeTooHigh indicates an early-withdrawal fee above the hard ceiling.
	ErrFeeTooHigh = errors.New("staking: fee too high")
	// ErrCannotRecoverStakeToken guards participants' principal from the
	// recovery escape hatch.
	ErrCannotRecoverStakeToken = errors.New("staking: cannot recover staking token")
	// ErrRewardReserveExhausted indicates a harvest the funded reserve cannot
	// cover.
	ErrRewardReserveExhausted = errors.New("staking: reward reserve exhausted")

	errNilState   = errors.New("staking: state not configured")
	errNilBank    = errors.New("staking: bank not configured")
	errNilCustody = errors.New("staking: custody not configured")
)
