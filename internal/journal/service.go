package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service owns journal entry creation and reads. It implements the
// calls.JournalWriter contract through CreateEntry.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// CreateEntry persists a transcribed call as a new entry and returns its id.
// Idempotent per callID (see Repository.Create).
func (s *Service) CreateEntry(ctx context.Context, userID, callID, transcription string, durationSeconds int) (string, error) {
	if userID == "" || callID == "" || transcription == "" {
		return "", ErrInvalidArgument
	}
	return s.repo.Create(ctx, Entry{
		EntryID:         uuid.NewString(),
		UserID:          userID,
		CallID:          callID,
		Transcription:   transcription,
		DurationSeconds: durationSeconds,
		CreatedAt:       s.clock().UTC(),
	})
}

// Get returns one entry by id. Entries belonging to another user surface
// as ErrNotFound so ids cannot be enumerated across accounts.
func (s *Service) Get(ctx context.Context, userID, entryID string) (Entry, error) {
	if userID == "" || entryID == "" {
		return Entry{}, ErrInvalidArgument
	}
	e, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if e.UserID != userID {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List returns a page of the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int, cursor string) (Page, error) {
	if userID == "" {
		return Page{}, ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, cursor)
}
