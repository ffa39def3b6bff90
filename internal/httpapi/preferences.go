package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicejournal/internal/auth"
	"voicejournal/internal/schedule"
	"voicejournal/internal/users"
	"voicejournal/pkg/logger"
)

type savePreferencesRequest struct {
	PhoneNumber       string `json:"phoneNumber"`
	PreferredCallTime string `json:"preferredCallTime"`
	Timezone          string `json:"timezone"`
	// IsActive defaults to true when omitted: saving preferences opts in.
	IsActive *bool `json:"isActive"`
}

// GetPreferences returns the caller's preferences, or an empty default
// record for users who have never saved any.
func (h Handlers) GetPreferences(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.Users.Get(c.Request.Context(), userID)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusOK, users.Preferences{
			UserID:   userID,
			Timezone: "America/New_York",
		})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preferences"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// SavePreferences validates and persists the caller's preferences, then
// reconciles the recurring call schedule to match.
func (h Handlers) SavePreferences(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req savePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := users.ValidateSave(req.PhoneNumber, req.PreferredCallTime); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timezone != "" && !schedule.KnownTimezone(req.Timezone) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported timezone"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	// Remember the previous number so a phone change invalidates the
	// caller-resolution cache for both numbers.
	prev, _ := h.Users.Get(c.Request.Context(), userID)

	saved, err := h.Users.Save(c.Request.Context(), users.Preferences{
		UserID:            userID,
		PhoneNumber:       req.PhoneNumber,
		PreferredCallTime: req.PreferredCallTime,
		Timezone:          req.Timezone,
		IsActive:          active,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}

	if h.Resolver != nil {
		if prev.PhoneNumber != "" && prev.PhoneNumber != saved.PhoneNumber {
			h.Resolver.Invalidate(c.Request.Context(), prev.PhoneNumber)
		}
		h.Resolver.Invalidate(c.Request.Context(), saved.PhoneNumber)
	}

	saved, ok := h.reconcileSchedule(c, saved)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": saved})
}

// reconcileSchedule brings the user's recurring trigger in line with the
// saved preferences. A trigger-service failure surfaces as 502: the save
// itself stuck, but the schedule is out of sync and the client should retry.
func (h Handlers) reconcileSchedule(c *gin.Context, p users.Preferences) (users.Preferences, bool) {
	if h.Reconciler == nil {
		return p, true
	}
	ctx := c.Request.Context()

	schedulable := p.IsActive && p.PhoneNumber != "" && p.PreferredCallTime != "" && p.Timezone != ""
	switch {
	case schedulable:
		res, err := h.Reconciler.Apply(ctx, schedule.Request{
			Action:            reconcileAction(p),
			UserID:            p.UserID,
			PhoneNumber:       p.PhoneNumber,
			PreferredCallTime: p.PreferredCallTime,
			Timezone:          p.Timezone,
		})
		if err != nil {
			logger.From(ctx).Error("schedule reconciliation failed", "user_id", p.UserID, "error", err)
			h.Audit.LogSchedule(ctx, p.UserID, "error", err.Error())
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "preferences saved but schedule sync failed"})
			return p, false
		}
		h.Audit.LogSchedule(ctx, p.UserID, "reconciled", res.ScheduleRef)
		p.ScheduleRef = &res.ScheduleRef

	case p.ScheduleRef != nil:
		if _, err := h.Reconciler.Apply(ctx, schedule.Request{Action: schedule.ActionDelete, UserID: p.UserID}); err != nil {
			logger.From(ctx).Error("schedule removal failed", "user_id", p.UserID, "error", err)
			h.Audit.LogSchedule(ctx, p.UserID, "error", err.Error())
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "preferences saved but schedule sync failed"})
			return p, false
		}
		h.Audit.LogSchedule(ctx, p.UserID, "deleted", "")
		p.ScheduleRef = nil
	}
	return p, true
}

func reconcileAction(p users.Preferences) schedule.Action {
	if p.ScheduleRef != nil {
		return schedule.ActionUpdate
	}
	return schedule.ActionCreate
}
