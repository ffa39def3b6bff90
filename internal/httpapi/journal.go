package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicejournal/internal/auth"
	"voicejournal/internal/journal"
)

// ListJournal returns a page of the caller's entries, newest first.
// Query parameters: limit (default 20, max 100), cursor (opaque).
func (h Handlers) ListJournal(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}

	page, err := h.Journal.List(c.Request.Context(), userID, limit, c.Query("cursor"))
	switch {
	case errors.Is(err, journal.ErrInvalidCursor):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch journal entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":    page.Entries,
		"nextCursor": page.NextCursor,
	})
}

// GetJournalEntry returns one of the caller's entries by id.
func (h Handlers) GetJournalEntry(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entry, err := h.Journal.Get(c.Request.Context(), userID, c.Param("id"))
	switch {
	case errors.Is(err, journal.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch entry"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
