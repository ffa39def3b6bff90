package telephony

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicejournal/internal/calls"
)

func newSignedTelnyxAdapter(t *testing.T) (*TelnyxAdapter, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewTelnyxAdapter(base64.StdEncoding.EncodeToString(pub), false), priv
}

func signTelnyx(priv ed25519.PrivateKey, timestamp string, raw []byte) string {
	signed := append([]byte(timestamp+"|"), raw...)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, signed))
}

func TestTelnyxVerify(t *testing.T) {
	a, priv := newSignedTelnyxAdapter(t)
	raw := []byte(`{"data":{"event_type":"call.ringing","payload":{"call_control_id":"cc1"}}}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	req := httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader(string(raw)))
	req.Header.Set("telnyx-signature-ed25519", signTelnyx(priv, ts, raw))
	req.Header.Set("telnyx-timestamp", ts)
	if err := a.Verify(req, raw); err != nil {
		t.Fatalf("Verify on signed request: %v", err)
	}

	// Tampered body.
	tampered := []byte(`{"data":{"event_type":"call.hangup","payload":{"call_control_id":"cc1"}}}`)
	req = httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader(string(tampered)))
	req.Header.Set("telnyx-signature-ed25519", signTelnyx(priv, ts, raw))
	req.Header.Set("telnyx-timestamp", ts)
	if err := a.Verify(req, tampered); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered body err = %v, want ErrBadSignature", err)
	}

	// Tampered timestamp.
	req = httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader(string(raw)))
	req.Header.Set("telnyx-signature-ed25519", signTelnyx(priv, ts, raw))
	req.Header.Set("telnyx-timestamp", ts+"1")
	if err := a.Verify(req, raw); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered timestamp err = %v, want ErrBadSignature", err)
	}

	// Missing headers.
	req = httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader(string(raw)))
	if err := a.Verify(req, raw); !errors.Is(err, ErrBadSignature) {
		t.Errorf("missing headers err = %v, want ErrBadSignature", err)
	}
}

func TestTelnyxNormalizeProgressHangup(t *testing.T) {
	a := NewTelnyxAdapter("", true)
	raw := []byte(`{"data":{"event_type":"call.hangup","payload":{
		"call_control_id":"cc1",
		"from":"+15551230001","to":"+15559998888",
		"direction":"incoming","state":"hangup",
		"start_time":"2026-08-30T10:00:00Z","end_time":"2026-08-30T10:01:35Z"}}}`)
	req := httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader(string(raw)))

	ev, err := a.NormalizeProgress(req, raw)
	if err != nil {
		t.Fatalf("NormalizeProgress: %v", err)
	}
	if ev.EventType != "call.hangup" || ev.CallID != "cc1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Direction != calls.DirectionInbound {
		t.Errorf("direction = %q", ev.Direction)
	}
	if got := ev.EndedAt.Sub(ev.StartedAt); got != 95*time.Second {
		t.Errorf("start/end delta = %v, want 95s", got)
	}
}

func TestTelnyxNormalizeProgressClientState(t *testing.T) {
	a := NewTelnyxAdapter("", true)
	state := base64.StdEncoding.EncodeToString([]byte(`{"userId":"u-42"}`))
	raw := []byte(`{"data":{"event_type":"call.answered","payload":{
		"call_control_id":"cc2","direction":"outgoing","client_state":"` + state + `"}}}`)
	req := httptest.NewRequest("POST", "/webhooks/telnyx/voice", strings.NewReader(string(raw)))

	ev, err := a.NormalizeProgress(req, raw)
	if err != nil {
		t.Fatalf("NormalizeProgress: %v", err)
	}
	if ev.SideChannelUserID != "u-42" {
		t.Errorf("side channel user = %q", ev.SideChannelUserID)
	}
	if ev.Direction != calls.DirectionOutbound {
		t.Errorf("direction = %q", ev.Direction)
	}

	// Legacy bare base64 user id.
	bare := base64.StdEncoding.EncodeToString([]byte("u-43"))
	raw = []byte(`{"data":{"event_type":"call.answered","payload":{
		"call_control_id":"cc3","client_state":"` + bare + `"}}}`)
	ev, err = a.NormalizeProgress(req, raw)
	if err != nil {
		t.Fatalf("NormalizeProgress: %v", err)
	}
	if ev.SideChannelUserID != "u-43" {
		t.Errorf("bare side channel user = %q", ev.SideChannelUserID)
	}
}

func TestTelnyxNormalizeRecording(t *testing.T) {
	a := NewTelnyxAdapter("", true)
	raw := []byte(`{"data":{"event_type":"call.recording.saved","payload":{
		"call_control_id":"cc1","recording_id":"rec9",
		"recording_urls":{"mp3":"https://cdn.telnyx.com/rec9.mp3"},
		"duration_millis":42000}}}`)
	req := httptest.NewRequest("POST", "/webhooks/telnyx/recording", strings.NewReader(string(raw)))

	ev, err := a.NormalizeRecording(req, raw)
	if err != nil {
		t.Fatalf("NormalizeRecording: %v", err)
	}
	if ev.RecordingID != "rec9" || ev.RecordingURL != "https://cdn.telnyx.com/rec9.mp3" || ev.DurationMillis != 42000 {
		t.Errorf("event = %+v", ev)
	}

	// Wrong event type is rejected.
	other := []byte(`{"data":{"event_type":"call.hangup","payload":{"call_control_id":"cc1"}}}`)
	if _, err := a.NormalizeRecording(req, other); !errors.Is(err, ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

func TestTelnyxNormalizeTranscription(t *testing.T) {
	a := NewTelnyxAdapter("", true)
	raw := []byte(`{"data":{"event_type":"call.transcription","payload":{
		"call_control_id":"cc1","transcription_text":"Today was good.","status":"completed"}}}`)
	req := httptest.NewRequest("POST", "/webhooks/telnyx/transcription", strings.NewReader(string(raw)))

	ev, err := a.NormalizeTranscription(req, raw)
	if err != nil {
		t.Fatalf("NormalizeTranscription: %v", err)
	}
	if ev.Text != "Today was good." || ev.TranscriptionStatus != "completed" {
		t.Errorf("event = %+v", ev)
	}
}

func TestTelnyxRejectsMalformedEnvelope(t *testing.T) {
	a := NewTelnyxAdapter("", true)
	req := httptest.NewRequest("POST", "/webhooks/telnyx/status", strings.NewReader("not json"))
	if _, err := a.NormalizeProgress(req, []byte("not json")); !errors.Is(err, ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}
