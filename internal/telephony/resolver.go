package telephony

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicejournal/internal/calls"
	"voicejournal/internal/users"
)

// PhoneDirectory is the slice of the user store the resolver needs.
type PhoneDirectory interface {
	FindByPhone(ctx context.Context, phoneNumber string) (users.Preferences, error)
}

// PhoneResolver maps inbound caller numbers to user ids, with a short
// Redis cache in front of the directory. Implements calls.UserLookup.
//
// Only positive results are cached. A miss always goes to the directory so
// a user who just registered their number is recognized on the next call.
type PhoneResolver struct {
	directory PhoneDirectory
	rdb       *redis.Client
	ttl       time.Duration
}

func NewPhoneResolver(directory PhoneDirectory, rdb *redis.Client) *PhoneResolver {
	return &PhoneResolver{directory: directory, rdb: rdb, ttl: 5 * time.Minute}
}

func cacheKey(phone string) string { return "phone2user:" + phone }

func (r *PhoneResolver) UserIDByPhone(ctx context.Context, phoneNumber string) (string, error) {
	if phoneNumber == "" {
		return "", calls.ErrUserNotFound
	}

	if r.rdb != nil {
		if uid, err := r.rdb.Get(ctx, cacheKey(phoneNumber)).Result(); err == nil && uid != "" {
			return uid, nil
		}
		// Cache errors fall through to the directory.
	}

	p, err := r.directory.FindByPhone(ctx, phoneNumber)
	if errors.Is(err, users.ErrNotFound) {
		return "", calls.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve phone number: %w", err)
	}

	if r.rdb != nil {
		// Best effort; a failed cache write must not fail the lookup.
		_ = r.rdb.Set(ctx, cacheKey(phoneNumber), p.UserID, r.ttl).Err()
	}
	return p.UserID, nil
}

// Invalidate drops the cache entry for a number, called when preferences
// change the number-to-user mapping.
func (r *PhoneResolver) Invalidate(ctx context.Context, phoneNumber string) {
	if r.rdb == nil || phoneNumber == "" {
		return
	}
	_ = r.rdb.Del(ctx, cacheKey(phoneNumber)).Err()
}
