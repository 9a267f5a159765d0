package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

// MemoryStaffRepository keeps profiles in process. It backs the local
// development mode and mirrors the Postgres error contract.
type MemoryStaffRepository struct {
	mu    sync.RWMutex
	items map[string]domain.StaffProfile
}

// NewMemoryStaffRepository returns an empty repository.
func NewMemoryStaffRepository() *MemoryStaffRepository {
	return &MemoryStaffRepository{items: make(map[string]domain.StaffProfile)}
}

func (r *MemoryStaffRepository) Create(_ context.Context, staff *domain.StaffProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[staff.ID]; exists {
		return ErrStaffExists
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.items[staff.ID] = *staff
	return nil
}

func (r *MemoryStaffRepository) Update(_ context.Context, staff *domain.StaffProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[staff.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.CreatedAt = existing.CreatedAt
	staff.UpdatedAt = time.Now().UTC()
	r.items[staff.ID] = *staff
	return nil
}

func (r *MemoryStaffRepository) GetByID(_ context.Context, id string) (*domain.StaffProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	staff, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &staff, nil
}

func (r *MemoryStaffRepository) List(_ context.Context, filter StaffFilter) ([]domain.StaffProfile, error) {
	r.mu.RLock()
	result := make([]domain.StaffProfile, 0, len(r.items))
	for _, staff := range r.items {
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && staff.IsActive != *filter.Active {
			continue
		}
		result = append(result, staff)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}
