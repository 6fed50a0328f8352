package replay

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/model"
)

// ActiveSet is the set of borrowers holding an open credit account.
type ActiveSet struct {
	members map[common.Address]struct{}
}

func newActiveSet() *ActiveSet {
	return &ActiveSet{members: make(map[common.Address]struct{})}
}

// Contains reports whether the address holds an open account.
func (s *ActiveSet) Contains(address common.Address) bool {
	_, ok := s.members[address]
	return ok
}

// Len returns the number of active borrowers.
func (s *ActiveSet) Len() int {
	return len(s.members)
}

// Addresses returns the members sorted by address bytes.
func (s *ActiveSet) Addresses() []common.Address {
	out := make([]common.Address, 0, len(s.members))
	for address := range s.members {
		out = append(out, address)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (s *ActiveSet) apply(action model.Action) {
	switch action.Operation {
	case model.OpAdd:
		s.members[action.Address] = struct{}{}
	case model.OpDelete:
		delete(s.members, action.Address)
	}
}

// Replay folds actions in ascending key order into the final active set. The
// input slice is left untouched.
func Replay(actions []model.Action) *ActiveSet {
	sorted := make([]model.Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.Less(sorted[j].Key)
	})

	set := newActiveSet()
	for _, action := range sorted {
		set.apply(action)
	}
	return set
}
