package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"voicejournal/internal/audit"
	"voicejournal/internal/calls"
	"voicejournal/internal/journal"
	"voicejournal/internal/schedule"
	"voicejournal/internal/telephony"
	"voicejournal/internal/users"
	"voicejournal/pkg/utils"
)

// DeliveryMarker tracks webhook delivery keys inside the dedup window.
// MarkFirst reports whether the key is new; Clear releases a key whose
// processing failed so the provider's retry is handled again.
type DeliveryMarker interface {
	MarkFirst(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, key string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON
// (or voice markup on the call-control endpoints).

type Handlers struct {
	Calls      *calls.Service
	Journal    *journal.Service
	Users      users.Repository
	Reconciler *schedule.Reconciler
	Dispatcher *telephony.Dispatcher
	Resolver   *telephony.PhoneResolver
	Audit      *audit.Service

	// Adapters maps the :provider route parameter to its webhook adapter.
	Adapters map[string]telephony.WebhookAdapter

	// Deliveries dedups webhook redeliveries. Nil disables dedup.
	Deliveries DeliveryMarker

	// BaseURL is the public origin, used for callback URLs in voice markup.
	BaseURL string

	// InternalToken guards the /internal endpoints.
	InternalToken string

	DB    *sql.DB
	Redis *redis.Client
}

// Health reports liveness of the service and its backing stores.
func (h Handlers) Health(c *gin.Context) {
	out := gin.H{"status": "ok"}
	code := http.StatusOK

	if h.DB != nil {
		if err := utils.HealthCheck(c.Request.Context(), h.DB, 2*time.Second); err != nil {
			out["postgres"] = "unreachable"
			out["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Request.Context()).Err(); err != nil {
			out["redis"] = "unreachable"
			out["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, out)
}

func (h Handlers) voiceML(provider string) telephony.VoiceMLBuilder {
	return telephony.VoiceMLBuilder{Provider: provider, BaseURL: h.BaseURL}
}
