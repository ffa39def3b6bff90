package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicejournal/internal/schedule"
	"voicejournal/internal/telephony"
)

// Internal endpoints, called by the scheduler service (trigger fires) and
// by operators. Guarded by a shared token, not user JWTs: the caller is
// infrastructure, not a person.

const internalTokenHeader = "X-Internal-Token"

// RequireInternalToken guards the /internal group.
func (h Handlers) RequireInternalToken(c *gin.Context) {
	token := c.GetHeader(internalTokenHeader)
	if h.InternalToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.InternalToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid internal token"})
		return
	}
	c.Next()
}

// Dispatch places the outbound daily call for one user. This is the target
// the recurring triggers fire at.
func (h Handlers) Dispatch(c *gin.Context) {
	var req telephony.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	res, err := h.Dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.Audit.LogDispatch(c.Request.Context(), req.UserID, "", "error", err.Error())
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "dial failed"})
		return
	}

	outcome := "dispatched"
	if !res.Dispatched {
		outcome = res.Reason
	}
	h.Audit.LogDispatch(c.Request.Context(), req.UserID, res.CallID, outcome, "")
	c.JSON(http.StatusOK, res)
}

// ApplySchedule runs one schedule reconciliation directly. Operators use it
// to repair drift between stored preferences and the trigger store.
func (h Handlers) ApplySchedule(c *gin.Context) {
	var req schedule.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Reconciler.Apply(c.Request.Context(), req)
	switch {
	case errors.Is(err, schedule.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Audit.LogSchedule(c.Request.Context(), req.UserID, "error", err.Error())
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "schedule reconciliation failed"})
		return
	}
	h.Audit.LogSchedule(c.Request.Context(), req.UserID, "reconciled", res.ScheduleRef)
	c.JSON(http.StatusOK, res)
}
