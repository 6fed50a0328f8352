package model

import "github.com/ethereum/go-ethereum/common"

// EventKind names a credit account lifecycle event.
type EventKind string

const (
	KindOpenCreditAccount             EventKind = "OpenCreditAccount"
	KindCloseCreditAccount            EventKind = "CloseCreditAccount"
	KindLiquidateCreditAccount        EventKind = "LiquidateCreditAccount"
	KindLiquidateExpiredCreditAccount EventKind = "LiquidateExpiredCreditAccount"
	KindRepayCreditAccount            EventKind = "RepayCreditAccount"
	KindTransferAccount               EventKind = "TransferAccount"
)

// EventMeta locates an event in chain history.
type EventMeta struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
	TxHash      string `json:"tx_hash,omitempty"`
}

// Key returns the event's position in the global order.
func (m EventMeta) Key() OrderKey {
	return OrderKey{BlockNumber: m.BlockNumber, LogIndex: m.LogIndex}
}

func (m EventMeta) meta() EventMeta { return m }

// CreditEvent is a decoded credit account event. The set of implementations is
// closed: only the variants in this file satisfy it.
type CreditEvent interface {
	Kind() EventKind
	Key() OrderKey
	meta() EventMeta
}

// Meta returns the chain location of any credit event.
func Meta(e CreditEvent) EventMeta {
	return e.meta()
}

// OpenCreditAccount is emitted when a credit account is opened on behalf of a borrower.
type OpenCreditAccount struct {
	EventMeta
	OnBehalfOf    common.Address `json:"on_behalf_of"`
	CreditAccount common.Address `json:"credit_account"`
}

func (OpenCreditAccount) Kind() EventKind { return KindOpenCreditAccount }

// CloseCreditAccount is emitted when a borrower closes their account.
type CloseCreditAccount struct {
	EventMeta
	Borrower common.Address `json:"borrower"`
}

func (CloseCreditAccount) Kind() EventKind { return KindCloseCreditAccount }

// LiquidateCreditAccount is emitted when a borrower's account is liquidated.
type LiquidateCreditAccount struct {
	EventMeta
	Borrower common.Address `json:"borrower"`
}

func (LiquidateCreditAccount) Kind() EventKind { return KindLiquidateCreditAccount }

// LiquidateExpiredCreditAccount is emitted when an account is liquidated after expiration.
type LiquidateExpiredCreditAccount struct {
	EventMeta
	Borrower common.Address `json:"borrower"`
}

func (LiquidateExpiredCreditAccount) Kind() EventKind { return KindLiquidateExpiredCreditAccount }

// RepayCreditAccount is emitted when a borrower repays and releases their account.
type RepayCreditAccount struct {
	EventMeta
	Borrower common.Address `json:"borrower"`
}

func (RepayCreditAccount) Kind() EventKind { return KindRepayCreditAccount }

// TransferAccount is emitted when account ownership moves between borrowers.
type TransferAccount struct {
	EventMeta
	OldOwner common.Address `json:"old_owner"`
	NewOwner common.Address `json:"new_owner"`
}

func (TransferAccount) Kind() EventKind { return KindTransferAccount }
