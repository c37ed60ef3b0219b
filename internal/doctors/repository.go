package doctors

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for doctor storage
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	// Blob returns the stored document or image. kind is "document" or "image".
	Blob(ctx context.Context, id, kind string) ([]byte, error)
}

// InMemoryRepository keeps doctors in memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	doctors map[string]*Doctor
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{doctors: make(map[string]*Doctor)}
}

func (r *InMemoryRepository) Create(ctx context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.doctors {
		if existing.Email == d.Email {
			return ErrEmailTaken
		}
	}
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return withoutBlobs(d), nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if d.Email == email {
			return withoutBlobs(d), nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	out := make([]*Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, withoutBlobs(d))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.doctors)), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *InMemoryRepository) Blob(ctx context.Context, id, kind string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	var data []byte
	switch kind {
	case BlobDocument:
		data = d.Document
	case BlobImage:
		data = d.Image
	}
	if len(data) == 0 {
		return nil, ErrNoBlob
	}
	return data, nil
}

func withoutBlobs(d *Doctor) *Doctor {
	cp := *d
	cp.HasDocument = len(d.Document) > 0
	cp.HasImage = len(d.Image) > 0
	cp.Document, cp.Image = nil, nil
	return &cp
}

var _ Repository = (*InMemoryRepository)(nil)
