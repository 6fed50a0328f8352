package model

import (
	"fmt"
	"strings"
)

// Version identifies a protocol generation and therefore its event vocabulary.
type Version int

const (
	// V1 is the credit manager generation (open, close, repay, liquidate, transfer).
	V1 Version = 1
	// V2 is the credit facade generation (open, close, liquidate, liquidate expired, transfer).
	V2 Version = 2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("v%d", int(v))
	}
}

// ParseVersion accepts "1", "v1", "2", "v2" (case-insensitive).
func ParseVersion(input string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "v1":
		return V1, nil
	case "2", "v2":
		return V2, nil
	default:
		return 0, fmt.Errorf("unsupported protocol version: %q", input)
	}
}
