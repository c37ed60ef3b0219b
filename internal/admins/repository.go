package admins

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists admin accounts. Deactivate is a soft delete.
type Repository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	List(ctx context.Context) ([]*Admin, error)
	UpdatePermissions(ctx context.Context, id string, perms Permissions) (*Admin, error)
	Deactivate(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// InMemoryRepository backs tests and local runs without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	admins map[string]*Admin
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{admins: make(map[string]*Admin)}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Email == a.Email {
			return ErrEmailTaken
		}
	}
	cp := *a
	r.admins[a.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Admin, 0, len(r.admins))
	for _, a := range r.admins {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) UpdatePermissions(ctx context.Context, id string, perms Permissions) (*Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Permissions = perms
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.IsActive = false
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.LastLoginAt = &at
	return nil
}
