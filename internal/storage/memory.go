package storage

import (
	"sync"

	"creditScope/internal/model"
)

// MemoryStorage collects log records in memory for a single computation.
type MemoryStorage struct {
	mu   sync.Mutex
	logs []model.LogRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// PutLogBatch appends a batch of log records.
func (s *MemoryStorage) PutLogBatch(logs []model.LogRecord) error {
	s.mu.Lock()
	s.logs = append(s.logs, logs...)
	s.mu.Unlock()
	return nil
}

// Logs returns a copy of everything stored so far.
func (s *MemoryStorage) Logs() []model.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogRecord, len(s.logs))
	copy(out, s.logs)
	return out
}
