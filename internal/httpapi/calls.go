package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicejournal/internal/auth"
)

// ListCalls returns the caller's recent call history, newest first.
// Query parameters: limit (default 20, max 100).
func (h Handlers) ListCalls(c *gin.Context) {
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

	records, err := h.Calls.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch call history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}
