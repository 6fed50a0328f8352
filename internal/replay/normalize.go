// Package replay rebuilds the set of open credit accounts from a contract's
// event history.
package replay

import (
	"creditScope/internal/model"
)

var vocabularies = map[model.Version]map[model.EventKind]bool{
	model.V1: {
		model.KindOpenCreditAccount:      true,
		model.KindCloseCreditAccount:     true,
		model.KindLiquidateCreditAccount: true,
		model.KindRepayCreditAccount:     true,
		model.KindTransferAccount:        true,
	},
	model.V2: {
		model.KindOpenCreditAccount:             true,
		model.KindCloseCreditAccount:            true,
		model.KindLiquidateCreditAccount:        true,
		model.KindLiquidateExpiredCreditAccount: true,
		model.KindTransferAccount:               true,
	},
}

// Recognizes reports whether kind participates in replay for the version.
func Recognizes(version model.Version, kind model.EventKind) bool {
	return vocabularies[version][kind]
}

// Normalize maps events to add/delete actions. Events outside the version's
// vocabulary are ignored. A transfer yields a delete and an add sharing one key.
func Normalize(version model.Version, events []model.CreditEvent) []model.Action {
	actions := make([]model.Action, 0, len(events))
	for _, event := range events {
		if event == nil || !Recognizes(version, event.Kind()) {
			continue
		}
		key := event.Key()

		switch e := event.(type) {
		case model.OpenCreditAccount:
			actions = append(actions, model.Action{Key: key, Address: e.OnBehalfOf, Operation: model.OpAdd})
		case model.CloseCreditAccount:
			actions = append(actions, model.Action{Key: key, Address: e.Borrower, Operation: model.OpDelete})
		case model.LiquidateCreditAccount:
			actions = append(actions, model.Action{Key: key, Address: e.Borrower, Operation: model.OpDelete})
		case model.LiquidateExpiredCreditAccount:
			actions = append(actions, model.Action{Key: key, Address: e.Borrower, Operation: model.OpDelete})
		case model.RepayCreditAccount:
			actions = append(actions, model.Action{Key: key, Address: e.Borrower, Operation: model.OpDelete})
		case model.TransferAccount:
			actions = append(actions,
				model.Action{Key: key, Address: e.OldOwner, Operation: model.OpDelete},
				model.Action{Key: key, Address: e.NewOwner, Operation: model.OpAdd},
			)
		}
	}
	return actions
}
