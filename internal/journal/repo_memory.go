package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	byID   map[string]Entry
	byCall map[string]string // callID -> entryID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Entry),
		byCall: make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, e Entry) (string, error) {
	if e.EntryID == "" || e.UserID == "" || e.CallID == "" {
		return "", ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byCall[e.CallID]; ok {
		return id, nil
	}
	r.byID[e.EntryID] = e
	r.byCall[e.CallID] = e.EntryID
	return e.EntryID, nil
}

func (r *MemoryRepo) Get(ctx context.Context, entryID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Entry
	for _, e := range r.byID {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].EntryID > all[j].EntryID
	})

	if cursor != "" {
		k, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		idx := 0
		for i, e := range all {
			if e.CreatedAt.Before(k.CreatedAt) || (e.CreatedAt.Equal(k.CreatedAt) && e.EntryID < k.EntryID) {
				idx = i
				break
			}
			idx = len(all)
		}
		all = all[idx:]
	}

	if len(all) > limit+1 {
		all = all[:limit+1]
	}
	return buildPage(all, limit), nil
}
