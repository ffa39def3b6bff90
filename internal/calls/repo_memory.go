package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if rec.CallID == "" || rec.UserID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.CallID]; ok {
		return ErrAlreadyExists
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records[rec.CallID] = rec
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ApplyIfNotTerminal(ctx context.Context, callID string, u Update) (bool, error) {
	if callID == "" {
		return false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callID]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Status.IsTerminal() {
		return false, nil
	}
	if u.Status != nil {
		rec.Status = *u.Status
	}
	if u.DurationSeconds != nil {
		rec.DurationSeconds = *u.DurationSeconds
	}
	if u.RecordingID != nil {
		rec.RecordingID = *u.RecordingID
	}
	if u.RecordingURL != nil {
		rec.RecordingURL = *u.RecordingURL
	}
	r.records[callID] = rec
	return true, nil
}

func (r *MemoryRepo) SetRecording(ctx context.Context, callID, recordingID, recordingURL string, durationSeconds int) error {
	if callID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callID]
	if !ok {
		return ErrNotFound
	}
	rec.RecordingID = recordingID
	rec.RecordingURL = recordingURL
	rec.DurationSeconds = durationSeconds
	r.records[callID] = rec
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
