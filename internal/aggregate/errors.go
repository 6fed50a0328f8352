package aggregate

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrBatchCall matches any BatchCallError.
var ErrBatchCall = errors.New("batch call failed")

// BatchCallError reports that the value batch could not be completed. Index is
// the failing call, or -1 when the whole batch failed.
type BatchCallError struct {
	Target common.Address
	Calls  int
	Index  int
	Err    error
}

func (e *BatchCallError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("batch call to %s: call %d of %d: %v", e.Target.Hex(), e.Index, e.Calls, e.Err)
	}
	return fmt.Sprintf("batch call to %s (%d calls): %v", e.Target.Hex(), e.Calls, e.Err)
}

func (e *BatchCallError) Unwrap() error {
	return e.Err
}

func (e *BatchCallError) Is(target error) bool {
	return target == ErrBatchCall
}
