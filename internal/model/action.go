package model

import "github.com/ethereum/go-ethereum/common"

// Operation is the effect an action has on the active borrower set.
type Operation uint8

const (
	OpAdd Operation = iota + 1
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Action is one add/delete step derived from a credit event.
type Action struct {
	Key       OrderKey
	Address   common.Address
	Operation Operation
}
