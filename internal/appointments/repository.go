package appointments

import (
	"context"
	"sort"
	"sync"
)

// Repository stores appointments. Every implementation rejects a second
// appointment whose BookingRef or non-empty DoctorRef is already stored with
// ErrSlotTaken. ExistsByBookingRef matches either ref.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context) ([]*Appointment, error)
	Delete(ctx context.Context, id string) (*Appointment, error)
	Count(ctx context.Context) (int64, error)
	ExistsByBookingRef(ctx context.Context, ref string) (bool, error)
}

// InMemoryRepository keeps appointments in process memory. Used in tests and
// local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Appointment
	byRef map[string]string
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:  make(map[string]*Appointment),
		byRef: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byRef[appt.BookingRef]; taken {
		return ErrSlotTaken
	}
	if appt.DoctorRef != "" {
		if _, taken := r.byRef[appt.DoctorRef]; taken {
			return ErrSlotTaken
		}
	}
	stored := *appt
	r.byID[appt.ID] = &stored
	r.byRef[appt.BookingRef] = appt.ID
	if appt.DoctorRef != "" {
		r.byRef[appt.DoctorRef] = appt.ID
	}
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *appt
	return &out, nil
}

// List returns every appointment, newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Appointment, error) {
	r.mu.RLock()
	out := make([]*Appointment, 0, len(r.byID))
	for _, appt := range r.byID {
		cp := *appt
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byRef, appt.BookingRef)
	if appt.DoctorRef != "" {
		delete(r.byRef, appt.DoctorRef)
	}
	return appt, nil
}

func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *InMemoryRepository) ExistsByBookingRef(ctx context.Context, ref string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRef[ref]
	return ok, nil
}

var _ Repository = (*InMemoryRepository)(nil)
