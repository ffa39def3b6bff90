package main

import (
	"github.com/gin-gonic/gin"

	"voicejournal/internal/httpapi"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	// Provider webhooks (public; authenticated by provider signatures).
	webhooks := r.Group("/webhooks/:provider")
	{
		webhooks.POST("/voice", h.Voice)
		webhooks.POST("/status", h.Status)
		webhooks.POST("/recording", h.Recording)
		webhooks.POST("/transcription", h.Transcription)
	}

	// user-facing API
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/preferences", h.GetPreferences)
		v1.POST("/preferences", h.SavePreferences)
		v1.GET("/journal", h.ListJournal)
		v1.GET("/journal/:id", h.GetJournalEntry)
		v1.GET("/calls", h.ListCalls)
	}

	// infrastructure callbacks (schedule fires, operator repairs)
	internal := r.Group("/internal")
	internal.Use(h.RequireInternalToken)
	{
		internal.POST("/dispatch", h.Dispatch)
		internal.POST("/schedules", h.ApplySchedule)
	}
}
