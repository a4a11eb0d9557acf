package jobstore

import (
	"sync"

	"audioforge/internal/domain/job"
)

// Memory is an in-process job store. It is the single serialization point
// for job mutation: every write goes through Update under one lock, and a
// conversion-id index gives O(1) secondary lookup.
//
// Records do not survive a process restart.
type Memory struct {
	mu           sync.RWMutex
	byUpload     map[string]job.Record
	byConversion map[string]string
}

// NewMemory creates an empty in-memory job store.
func NewMemory() *Memory {
	return &Memory{
		byUpload:     make(map[string]job.Record),
		byConversion: make(map[string]string),
	}
}

// Create inserts a new record keyed by its upload id.
func (m *Memory) Create(rec job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUpload[rec.UploadID]; exists {
		return job.ErrDuplicateKey
	}
	m.byUpload[rec.UploadID] = rec
	if rec.ConversionID != "" {
		m.byConversion[rec.ConversionID] = rec.UploadID
	}
	return nil
}

// Get returns a copy of the record for an upload id.
func (m *Memory) Get(uploadID string) (job.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byUpload[uploadID]
	return rec, ok
}

// GetByConversionID resolves a conversion id through the secondary index.
func (m *Memory) GetByConversionID(conversionID string) (job.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uploadID, ok := m.byConversion[conversionID]
	if !ok {
		return job.Record{}, false
	}
	rec, ok := m.byUpload[uploadID]
	return rec, ok
}

// Update applies fn to the record under the store lock. If fn returns an
// error the record is left untouched and the error is passed through; this
// is how callers veto illegal transitions atomically. The updated record is
// returned by value.
func (m *Memory) Update(uploadID string, fn func(*job.Record) error) (job.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byUpload[uploadID]
	if !ok {
		return job.Record{}, job.ErrNotFound
	}

	prevConversionID := rec.ConversionID
	if err := fn(&rec); err != nil {
		return job.Record{}, err
	}

	m.byUpload[uploadID] = rec
	if prevConversionID != "" && prevConversionID != rec.ConversionID {
		delete(m.byConversion, prevConversionID)
	}
	if rec.ConversionID != "" {
		m.byConversion[rec.ConversionID] = uploadID
	}
	return rec, nil
}
