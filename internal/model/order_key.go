package model

import (
	"errors"
	"fmt"
	"math"
)

// LegacyOrderKeyMultiplier is the block multiplier used by packed order keys.
const LegacyOrderKeyMultiplier uint64 = 100000

// ErrOrderKeyOverflow is returned when a packed order key cannot represent an event position.
var ErrOrderKeyOverflow = errors.New("order key overflow")

// OrderKey totally orders events by block, then by log index within the block.
type OrderKey struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// Compare returns -1, 0 or 1.
func (k OrderKey) Compare(other OrderKey) int {
	switch {
	case k.BlockNumber < other.BlockNumber:
		return -1
	case k.BlockNumber > other.BlockNumber:
		return 1
	case k.LogIndex < other.LogIndex:
		return -1
	case k.LogIndex > other.LogIndex:
		return 1
	default:
		return 0
	}
}

// Less reports whether k sorts before other.
func (k OrderKey) Less(other OrderKey) bool {
	return k.Compare(other) < 0
}

// Packed encodes the key as blockNumber*multiplier + logIndex. Ordering of packed
// keys only matches Compare while every log index stays below the multiplier.
func (k OrderKey) Packed(multiplier uint64) (uint64, error) {
	if multiplier == 0 {
		return 0, fmt.Errorf("%w: zero multiplier", ErrOrderKeyOverflow)
	}
	if k.LogIndex >= multiplier {
		return 0, fmt.Errorf("%w: log index %d >= multiplier %d at block %d", ErrOrderKeyOverflow, k.LogIndex, multiplier, k.BlockNumber)
	}
	if k.BlockNumber > (math.MaxUint64-k.LogIndex)/multiplier {
		return 0, fmt.Errorf("%w: block %d too large for multiplier %d", ErrOrderKeyOverflow, k.BlockNumber, multiplier)
	}
	return k.BlockNumber*multiplier + k.LogIndex, nil
}

func (k OrderKey) String() string {
	return fmt.Sprintf("%d:%d", k.BlockNumber, k.LogIndex)
}
