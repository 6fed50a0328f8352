// Package storage holds sinks for fetched logs.
package storage

import "creditScope/internal/model"

// Storage receives fetched logs one block range at a time.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
