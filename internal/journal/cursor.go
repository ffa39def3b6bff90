package journal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor marks a pagination position: the (created_at, entry_id) key of the
// last entry on the previous page. It travels to clients as opaque base64;
// clients must never construct or inspect it.
type cursorKey struct {
	CreatedAt time.Time `json:"created_at"`
	EntryID   string    `json:"entry_id"`
}

func encodeCursor(k cursorKey) string {
	b, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (cursorKey, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursorKey{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var k cursorKey
	if err := json.Unmarshal(b, &k); err != nil {
		return cursorKey{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if k.EntryID == "" || k.CreatedAt.IsZero() {
		return cursorKey{}, ErrInvalidCursor
	}
	return k, nil
}
