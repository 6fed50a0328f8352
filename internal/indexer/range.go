package indexer

import "fmt"

// BlockRange is an inclusive span of blocks fetched with one eth_getLogs request.
type BlockRange struct {
	From uint64
	To   uint64
}

// Size returns the number of blocks covered.
func (r BlockRange) Size() uint64 {
	return r.To - r.From + 1
}

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d is below from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		// Compare against to instead of looping on start, which can wrap at MaxUint64.
		if end == to {
			return ranges, nil
		}
	}
}
