package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OpenPosition pairs an active borrower with the credit account it controls.
type OpenPosition struct {
	Borrower      common.Address `json:"borrower"`
	CreditAccount common.Address `json:"credit_account"`
}

// TVLSnapshot is a computed total value report for one protocol instance at one block.
type TVLSnapshot struct {
	ChainID     uint64
	Contract    string
	Version     Version
	BlockNumber uint64
	TotalValue  string
	Positions   []OpenPosition
	ComputedAt  time.Time
}
