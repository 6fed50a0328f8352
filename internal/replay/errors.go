package replay

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrResolutionMiss matches any ResolutionMissError.
var ErrResolutionMiss = errors.New("resolution miss")

// ResolutionMissError reports an active borrower with no attributable credit account.
type ResolutionMissError struct {
	Borrower common.Address
	Policy   Policy
}

func (e *ResolutionMissError) Error() string {
	return fmt.Sprintf("resolution miss: no %s attribution for borrower %s", e.Policy, e.Borrower.Hex())
}

func (e *ResolutionMissError) Is(target error) bool {
	return target == ErrResolutionMiss
}
