package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session record exists for an id.
var ErrNotFound = errors.New("session not found")

// Record is what repositories persist. Tokens stay sealed.
type Record struct {
	ID              uuid.UUID `json:"id"`
	Principal       Principal `json:"principal"`
	SealedTokens    []byte    `json:"sealedTokens"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Repository stores session records.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteIdle(ctx context.Context, before time.Time) ([]uuid.UUID, error)
}

// MemoryRepository keeps records in process memory. Restarting the gateway signs everyone out.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]Record)}
}

// Save inserts or replaces rec.
func (r *MemoryRepository) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	cp.SealedTokens = append([]byte(nil), rec.SealedTokens...)
	r.records[rec.ID] = cp
	return nil
}

// Get returns a copy of the record.
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

// DeleteIdle removes records not touched since before.
func (r *MemoryRepository) DeleteIdle(_ context.Context, before time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, rec := range r.records {
		if rec.UpdatedAt.Before(before) {
			delete(r.records, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
