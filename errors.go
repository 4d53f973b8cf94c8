package clreplay

import "errors"

// Sentinel errors for the taxonomy in spec §7. Wrap with fmt.Errorf("...: %w", ...)
// to attach context; callers can still errors.Is against these.
var (
	ErrIncorrectInput      = errors.New("clreplay: incorrect input")
	ErrTickPriceMisaligned = errors.New("clreplay: tick and price do not align")
	ErrSwapAmount          = errors.New("clreplay: swap amounts are incorrect")
	ErrSwapMisaligned      = errors.New("clreplay: reported swap state does not match computed state")
	ErrBurnMintMismatch    = errors.New("clreplay: burn does not match a unique mint")
	ErrCollectMismatch     = errors.New("clreplay: collect does not match a unique position")
	ErrFeeMismatch         = errors.New("clreplay: accrued fees do not reconcile with total fees collected")
	ErrSwapNonTermination  = errors.New("clreplay: swap traversal exceeded iteration ceiling")
	ErrAlreadyInitialized  = errors.New("clreplay: pool already initialized")
	ErrInvalidTickRange    = errors.New("clreplay: tick range is invalid")
	ErrPositionNotFound    = errors.New("clreplay: position not found")
)
