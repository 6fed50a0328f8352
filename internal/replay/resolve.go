package replay

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"creditScope/internal/model"
)

// Policy selects how an active borrower is mapped to its credit account.
type Policy int

const (
	// LatestOpenPolicy takes the most recent attribution by order key. Accounts
	// received through a transfer inherit the sender's account.
	LatestOpenPolicy Policy = iota + 1
	// FirstOpenPolicy takes the first open event in log order naming the
	// borrower as beneficiary. Transfers are not followed.
	FirstOpenPolicy
)

func (p Policy) String() string {
	switch p {
	case LatestOpenPolicy:
		return "latest-open"
	case FirstOpenPolicy:
		return "first-open"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// PolicyFor returns the resolution policy used by a protocol version.
func PolicyFor(version model.Version) Policy {
	if version == model.V1 {
		return FirstOpenPolicy
	}
	return LatestOpenPolicy
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Policy Policy
	// SkipUnresolved reports misses in Resolution.Unresolved instead of failing.
	SkipUnresolved bool
	Logger         *zap.Logger
}

// Resolution is the outcome of resolving an active set.
type Resolution struct {
	Positions  []model.OpenPosition
	Unresolved []common.Address
}

// Accounts returns the resolved credit accounts in position order.
func (r Resolution) Accounts() []common.Address {
	out := make([]common.Address, 0, len(r.Positions))
	for _, position := range r.Positions {
		out = append(out, position.CreditAccount)
	}
	return out
}

// Index maps borrowers to credit accounts under one policy. Build it once per
// event set and query it for every active borrower.
type Index struct {
	policy  Policy
	entries map[common.Address]common.Address
}

// NewIndex scans events once and records the attribution each policy needs.
func NewIndex(policy Policy, events []model.CreditEvent) (*Index, error) {
	idx := &Index{policy: policy, entries: make(map[common.Address]common.Address)}
	switch policy {
	case FirstOpenPolicy:
		idx.buildFirstOpen(events)
	case LatestOpenPolicy:
		idx.buildLatest(events)
	default:
		return nil, fmt.Errorf("unknown resolution policy: %d", int(policy))
	}
	return idx, nil
}

func (idx *Index) buildFirstOpen(events []model.CreditEvent) {
	for _, event := range events {
		open, ok := event.(model.OpenCreditAccount)
		if !ok {
			continue
		}
		if _, seen := idx.entries[open.OnBehalfOf]; seen {
			continue
		}
		idx.entries[open.OnBehalfOf] = open.CreditAccount
	}
}

func (idx *Index) buildLatest(events []model.CreditEvent) {
	relevant := make([]model.CreditEvent, 0, len(events))
	for _, event := range events {
		switch event.(type) {
		case model.OpenCreditAccount, model.TransferAccount:
			relevant = append(relevant, event)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Key().Less(relevant[j].Key())
	})

	// Ascending walk: the last write per borrower is the latest attribution.
	for _, event := range relevant {
		switch e := event.(type) {
		case model.OpenCreditAccount:
			idx.entries[e.OnBehalfOf] = e.CreditAccount
		case model.TransferAccount:
			account, ok := idx.entries[e.OldOwner]
			if !ok {
				continue
			}
			idx.entries[e.NewOwner] = account
		}
	}
}

// Lookup returns the credit account attributed to borrower.
func (idx *Index) Lookup(borrower common.Address) (common.Address, bool) {
	account, ok := idx.entries[borrower]
	return account, ok
}

// Resolve maps every active borrower to the credit account it currently controls.
func Resolve(active *ActiveSet, events []model.CreditEvent, opts ResolveOptions) (Resolution, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var res Resolution
	if active == nil || active.Len() == 0 {
		return res, nil
	}

	idx, err := NewIndex(opts.Policy, events)
	if err != nil {
		return Resolution{}, err
	}

	borrowers := active.Addresses()
	res.Positions = make([]model.OpenPosition, 0, len(borrowers))
	for _, borrower := range borrowers {
		account, ok := idx.Lookup(borrower)
		if !ok {
			if !opts.SkipUnresolved {
				return Resolution{}, &ResolutionMissError{Borrower: borrower, Policy: opts.Policy}
			}
			logger.Warn("skip unresolved borrower", zap.String("borrower", borrower.Hex()), zap.Stringer("policy", opts.Policy))
			res.Unresolved = append(res.Unresolved, borrower)
			continue
		}
		res.Positions = append(res.Positions, model.OpenPosition{Borrower: borrower, CreditAccount: account})
	}
	return res, nil
}
