// Package gearbox knows the Gearbox credit manager and credit facade contracts:
// their event ABIs, how to decode them, and how to query account value.
package gearbox

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"creditScope/internal/model"
)

// Decoder turns raw log records into credit events for one protocol version.
type Decoder struct {
	version     model.Version
	eventsABI   abi.ABI
	topicToName map[string]model.EventKind
}

// NewDecoder builds a Decoder for the version's event vocabulary.
func NewDecoder(version model.Version) (*Decoder, error) {
	parsed, err := EventsABI(version)
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]model.EventKind, len(parsed.Events))
	for name, event := range parsed.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = model.EventKind(name)
	}

	return &Decoder{
		version:     version,
		eventsABI:   parsed,
		topicToName: topicToName,
	}, nil
}

// Version returns the protocol version the decoder was built for.
func (d *Decoder) Version() model.Version {
	return d.version
}

// Topics returns the topic0 filter covering every event the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	names := make([]string, 0, len(d.eventsABI.Events))
	for name := range d.eventsABI.Events {
		names = append(names, name)
	}
	// Stable order keeps filter queries reproducible.
	sort.Strings(names)

	topics := make([]common.Hash, 0, len(names))
	for _, name := range names {
		topics = append(topics, d.eventsABI.Events[name].ID)
	}
	return topics
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a CreditEvent.
func (d *Decoder) Decode(log model.LogRecord) (model.CreditEvent, error) {
	meta := log.Meta()
	if len(log.Topics) == 0 {
		return nil, &MalformedLogError{Meta: meta, Reason: "missing topics"}
	}
	kind, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	event := d.eventsABI.Events[string(kind)]

	fields, err := decodeIndexed(event, log.Topics)
	if err != nil {
		return nil, &MalformedLogError{Meta: meta, Event: event.Name, Reason: err.Error()}
	}
	if err := checkNonIndexed(event, log.Data); err != nil {
		return nil, &MalformedLogError{Meta: meta, Event: event.Name, Reason: err.Error()}
	}

	field := func(name string) (common.Address, error) {
		value, ok := fields[name]
		if !ok {
			return common.Address{}, &MalformedLogError{Meta: meta, Event: event.Name, Reason: "missing field " + name}
		}
		address, err := asAddress(value)
		if err != nil {
			return common.Address{}, &MalformedLogError{Meta: meta, Event: event.Name, Reason: fmt.Sprintf("%s: %v", name, err)}
		}
		return address, nil
	}

	switch kind {
	case model.KindOpenCreditAccount:
		onBehalfOf, err := field("onBehalfOf")
		if err != nil {
			return nil, err
		}
		account, err := field("creditAccount")
		if err != nil {
			return nil, err
		}
		return model.OpenCreditAccount{EventMeta: meta, OnBehalfOf: onBehalfOf, CreditAccount: account}, nil
	case model.KindCloseCreditAccount:
		borrower, err := field("borrower")
		if err != nil {
			return nil, err
		}
		return model.CloseCreditAccount{EventMeta: meta, Borrower: borrower}, nil
	case model.KindLiquidateCreditAccount:
		borrower, err := field("borrower")
		if err != nil {
			return nil, err
		}
		return model.LiquidateCreditAccount{EventMeta: meta, Borrower: borrower}, nil
	case model.KindLiquidateExpiredCreditAccount:
		borrower, err := field("borrower")
		if err != nil {
			return nil, err
		}
		return model.LiquidateExpiredCreditAccount{EventMeta: meta, Borrower: borrower}, nil
	case model.KindRepayCreditAccount:
		borrower, err := field("borrower")
		if err != nil {
			return nil, err
		}
		return model.RepayCreditAccount{EventMeta: meta, Borrower: borrower}, nil
	case model.KindTransferAccount:
		oldOwner, err := field("oldOwner")
		if err != nil {
			return nil, err
		}
		newOwner, err := field("newOwner")
		if err != nil {
			return nil, err
		}
		return model.TransferAccount{EventMeta: meta, OldOwner: oldOwner, NewOwner: newOwner}, nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", kind)
	}
}

// DecodeAll decodes every record, skipping logs with unknown topics and
// removed (reorged) logs. The first malformed log aborts decoding.
func (d *Decoder) DecodeAll(records []model.LogRecord) ([]model.CreditEvent, error) {
	events := make([]model.CreditEvent, 0, len(records))
	for _, record := range records {
		if record.Removed || !d.CanDecode(record.Topic0()) {
			continue
		}
		event, err := d.Decode(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeIndexed(event abi.Event, topics []string) (map[string]interface{}, error) {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}
	hashes, err := parseTopicHashes(topics[1:])
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(indexed))
	if err := abi.ParseTopicsIntoMap(out, indexed, hashes); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	return out, nil
}

func checkNonIndexed(event abi.Event, dataHex string) error {
	nonIndexed := event.Inputs.NonIndexed()
	if len(nonIndexed) == 0 {
		return nil
	}
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	if _, err := nonIndexed.Unpack(data); err != nil {
		return fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}
