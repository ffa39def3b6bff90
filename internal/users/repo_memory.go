package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	prefs map[string]Preferences
	clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{prefs: make(map[string]Preferences), clock: time.Now}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[userID]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Save(ctx context.Context, p Preferences) (Preferences, error) {
	if p.UserID == "" {
		return Preferences{}, ErrValidation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock().UTC()
	cur, ok := r.prefs[p.UserID]
	if !ok {
		cur = Preferences{UserID: p.UserID, Timezone: "America/New_York", CreatedAt: now}
	}
	if p.PhoneNumber != "" {
		cur.PhoneNumber = p.PhoneNumber
	}
	if p.PreferredCallTime != "" {
		cur.PreferredCallTime = p.PreferredCallTime
	}
	if p.Timezone != "" {
		cur.Timezone = p.Timezone
	}
	cur.IsActive = p.IsActive
	cur.UpdatedAt = now
	r.prefs[p.UserID] = cur
	return cur, nil
}

func (r *MemoryRepo) SetScheduleRef(ctx context.Context, userID string, ref *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[userID]
	if !ok {
		return ErrNotFound
	}
	p.ScheduleRef = ref
	p.UpdatedAt = r.clock().UTC()
	r.prefs[userID] = p
	return nil
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, phoneNumber string) (Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Linear scan mirrors the unindexed lookup; fine at test scale.
	for _, p := range r.prefs {
		if p.PhoneNumber == phoneNumber {
			return p, nil
		}
	}
	return Preferences{}, ErrNotFound
}
