package model

// CreditEventRecord is the JSONL representation of a decoded credit event.
type CreditEventRecord struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   EventKind   `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     CreditEvent `json:"decoded"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// NewCreditEventRecord wraps a decoded event with the log it came from.
func NewCreditEventRecord(log LogRecord, event CreditEvent) CreditEventRecord {
	var raw *RawLogRef
	if len(log.Topics) > 0 {
		raw = &RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	}
	return CreditEventRecord{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   event.Kind(),
		Timestamp:   log.Timestamp,
		Decoded:     event,
		Raw:         raw,
	}
}
