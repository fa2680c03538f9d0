package taxlot

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. All validation happens before
// any state changes, so a returned error always means nothing was mutated.
var (
	// ErrInvalidInput indicates a non-positive quantity or price, or an
	// unknown disposal method.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientShares indicates the requested disposal exceeds the
	// total open quantity available to it.
	ErrInsufficientShares = errors.New("insufficient open shares")

	// ErrSpecificLotsRequired indicates the specific disposal method was
	// chosen without supplying lot ids.
	ErrSpecificLotsRequired = errors.New("specific method requires lot ids")
)

// LotNotFoundError indicates a specified lot id does not resolve to an
// open lot owned by the caller for the requested symbol.
type LotNotFoundError struct {
	LotID string
}

func (e *LotNotFoundError) Error() string {
	return fmt.Sprintf("lot not found: %s", e.LotID)
}
