package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voicejournal/internal/calls"
	"voicejournal/internal/telephony"
	"voicejournal/pkg/logger"
)

// Webhook endpoints. One route set per provider:
//
//	POST /webhooks/:provider/voice          call control (answers with markup)
//	POST /webhooks/:provider/status         call progress updates
//	POST /webhooks/:provider/recording      recording completion
//	POST /webhooks/:provider/transcription  transcription completion
//
// Every handler verifies the provider signature against the raw body before
// trusting anything in it. Processing failures on the call-control endpoints
// still answer 200 with a spoken error document so the caller hears
// something instead of dead air.

const maxWebhookBody = 1 << 20

// deliveryTTL bounds the redis dedup window. Providers retry within
// minutes; an hour covers every observed retry schedule.
const deliveryTTL = time.Hour

func (h Handlers) adapterFor(c *gin.Context) (telephony.WebhookAdapter, []byte, bool) {
	adapter, ok := h.Adapters[c.Param("provider")]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return nil, nil, false
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, nil, false
	}

	if err := adapter.Verify(c.Request, raw); err != nil {
		logger.From(c.Request.Context()).Warn("webhook signature rejected",
			"provider", adapter.Name(), "error", err)
		h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), "", "", "rejected_signature", "")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "signature verification failed"})
		return nil, nil, false
	}
	return adapter, raw, true
}

// firstDelivery reports whether this delivery key has been seen inside the
// dedup window. The marker being unavailable degrades to processing
// everything; the state machine is idempotent, so duplicates are safe,
// just wasteful.
func (h Handlers) firstDelivery(c *gin.Context, key string) bool {
	if h.Deliveries == nil || key == "" {
		return true
	}
	first, err := h.Deliveries.MarkFirst(c.Request.Context(), "webhook:"+key, deliveryTTL)
	if err != nil {
		return true
	}
	return first
}

// releaseDelivery clears a delivery marker after processing failed. The
// marker may only be consumed by a delivery that was fully applied;
// otherwise the provider's retry would be dropped as a duplicate.
func (h Handlers) releaseDelivery(c *gin.Context, key string) {
	if h.Deliveries == nil || key == "" {
		return
	}
	if err := h.Deliveries.Clear(c.Request.Context(), "webhook:"+key); err != nil {
		logger.From(c.Request.Context()).Warn("delivery marker release failed", "key", key, "error", err)
	}
}

func (h Handlers) answerXML(c *gin.Context, doc string, err error) {
	if err != nil {
		c.String(http.StatusOK, "")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(doc))
}

// Voice handles call-control callbacks: call initiated or answered. The
// response document drives the call (prompt and record, or turn away an
// unknown caller).
func (h Handlers) Voice(c *gin.Context) {
	adapter, raw, ok := h.adapterFor(c)
	if !ok {
		return
	}
	ml := h.voiceML(adapter.Name())

	ev, err := adapter.NormalizeProgress(c.Request, raw)
	if err != nil {
		logger.From(c.Request.Context()).Warn("voice webhook rejected", "provider", adapter.Name(), "error", err)
		doc, derr := ml.ErrorClosing()
		h.answerXML(c, doc, derr)
		return
	}

	if !ev.IsInitiation() {
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		return
	}

	outcome, err := h.Calls.HandleProgress(c.Request.Context(), ev)
	if err != nil {
		logger.From(c.Request.Context()).Error("voice webhook failed",
			"provider", adapter.Name(), "call_id", ev.CallID, "error", err)
		h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, "", "error", err.Error())
		doc, derr := ml.ErrorClosing()
		h.answerXML(c, doc, derr)
		return
	}
	h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, ev.SideChannelUserID, string(outcome), "voice")

	if outcome == calls.OutcomeUnknownCaller {
		doc, derr := ml.UnknownCaller()
		h.answerXML(c, doc, derr)
		return
	}
	doc, derr := ml.JournalPrompt(ev.Direction == calls.DirectionOutbound)
	h.answerXML(c, doc, derr)
}

// Status handles call progress updates.
func (h Handlers) Status(c *gin.Context) {
	adapter, raw, ok := h.adapterFor(c)
	if !ok {
		return
	}

	ev, err := adapter.NormalizeProgress(c.Request, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	key := adapter.Name() + ":status:" + ev.CallID + ":" + ev.EventType + ":" + ev.ProviderState
	if !h.firstDelivery(c, key) {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	outcome, err := h.Calls.HandleProgress(c.Request.Context(), ev)
	if err != nil {
		logger.From(c.Request.Context()).Error("status webhook failed",
			"provider", adapter.Name(), "call_id", ev.CallID, "error", err)
		h.releaseDelivery(c, key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process status update"})
		return
	}
	h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, "", string(outcome), "status")

	if outcome == calls.OutcomeSkipped {
		c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "no_record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Recording handles recording-completion callbacks. The call leg is still
// live, so the answer is a spoken thank-you document either way.
func (h Handlers) Recording(c *gin.Context) {
	adapter, raw, ok := h.adapterFor(c)
	if !ok {
		return
	}
	ml := h.voiceML(adapter.Name())

	ev, err := adapter.NormalizeRecording(c.Request, raw)
	if err != nil {
		doc, derr := ml.RecordingComplete()
		h.answerXML(c, doc, derr)
		return
	}

	key := adapter.Name() + ":recording:" + ev.CallID + ":" + ev.RecordingID
	if h.firstDelivery(c, key) {
		outcome, err := h.Calls.HandleRecording(c.Request.Context(), ev)
		if err != nil {
			logger.From(c.Request.Context()).Error("recording webhook failed",
				"provider", adapter.Name(), "call_id", ev.CallID, "error", err)
			h.releaseDelivery(c, key)
		} else {
			h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, "", string(outcome), "recording")
		}
	}

	doc, derr := ml.RecordingComplete()
	h.answerXML(c, doc, derr)
}

// Transcription handles transcription-completion callbacks and produces the
// journal entry.
func (h Handlers) Transcription(c *gin.Context) {
	adapter, raw, ok := h.adapterFor(c)
	if !ok {
		return
	}

	ev, err := adapter.NormalizeTranscription(c.Request, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	entryID, err := h.Calls.HandleTranscription(c.Request.Context(), ev)
	switch {
	case errors.Is(err, calls.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "call record not found"})
		return
	case err != nil:
		logger.From(c.Request.Context()).Error("transcription webhook failed",
			"provider", adapter.Name(), "call_id", ev.CallID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process transcription"})
		return
	}

	if entryID == "" {
		h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, "", "skipped", "transcription")
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}
	h.Audit.LogWebhook(c.Request.Context(), adapter.Name(), ev.CallID, "", "recorded", "transcription")
	c.JSON(http.StatusOK, gin.H{"status": "success", "entryId": entryID})
}
