package telephony

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"voicejournal/internal/calls"
)

func TestTwilioVerify(t *testing.T) {
	a := NewTwilioAdapter("token-123", "https://api.example.com", false)
	form := url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"ringing"},
		"From":       {"+15551230001"},
	}
	raw := form.Encode()

	req := httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(raw))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", twilioSignature(a.AuthToken, "https://api.example.com/webhooks/twilio/status", form))
	if err := a.Verify(req, []byte(raw)); err != nil {
		t.Fatalf("Verify on signed request: %v", err)
	}

	// Wrong token.
	req = httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(raw))
	req.Header.Set("X-Twilio-Signature", twilioSignature("other-token", "https://api.example.com/webhooks/twilio/status", form))
	if err := a.Verify(req, []byte(raw)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("wrong token err = %v, want ErrBadSignature", err)
	}

	// Missing header.
	req = httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(raw))
	if err := a.Verify(req, []byte(raw)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("missing header err = %v, want ErrBadSignature", err)
	}

	// Tampered body fails even with a previously valid signature.
	good := twilioSignature(a.AuthToken, "https://api.example.com/webhooks/twilio/status", form)
	form.Set("From", "+15559990000")
	tampered := form.Encode()
	req = httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(tampered))
	req.Header.Set("X-Twilio-Signature", good)
	if err := a.Verify(req, []byte(tampered)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered body err = %v, want ErrBadSignature", err)
	}
}

func TestTwilioNormalizeProgress(t *testing.T) {
	a := NewTwilioAdapter("token", "https://api.example.com", true)

	form := url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"From":         {"+15551230001"},
		"To":           {"+15559998888"},
		"Direction":    {"inbound"},
		"CallDuration": {"87"},
	}
	req := httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(form.Encode()))

	ev, err := a.NormalizeProgress(req, []byte(form.Encode()))
	if err != nil {
		t.Fatalf("NormalizeProgress: %v", err)
	}
	if ev.CallID != "CA123" || ev.ProviderState != "completed" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Direction != calls.DirectionInbound {
		t.Errorf("direction = %q", ev.Direction)
	}
	if ev.ReportedDurationSeconds != 87 {
		t.Errorf("duration = %d, want 87", ev.ReportedDurationSeconds)
	}
}

func TestTwilioNormalizeProgressOutboundSideChannel(t *testing.T) {
	a := NewTwilioAdapter("token", "https://api.example.com", true)

	form := url.Values{
		"CallSid":    {"CA999"},
		"CallStatus": {"in-progress"},
		"Direction":  {"outbound-api"},
	}
	req := httptest.NewRequest("POST", "/webhooks/twilio/voice?direction=outbound&userId=u-42", strings.NewReader(form.Encode()))

	ev, err := a.NormalizeProgress(req, []byte(form.Encode()))
	if err != nil {
		t.Fatalf("NormalizeProgress: %v", err)
	}
	if ev.Direction != calls.DirectionOutbound {
		t.Errorf("direction = %q", ev.Direction)
	}
	if ev.SideChannelUserID != "u-42" {
		t.Errorf("side channel user = %q", ev.SideChannelUserID)
	}
}

func TestTwilioNormalizeRecording(t *testing.T) {
	a := NewTwilioAdapter("token", "https://api.example.com", true)

	form := url.Values{
		"CallSid":           {"CA123"},
		"RecordingSid":      {"RE456"},
		"RecordingUrl":      {"https://api.twilio.com/recordings/RE456"},
		"RecordingDuration": {"42"},
	}
	req := httptest.NewRequest("POST", "/webhooks/twilio/recording", strings.NewReader(form.Encode()))

	ev, err := a.NormalizeRecording(req, []byte(form.Encode()))
	if err != nil {
		t.Fatalf("NormalizeRecording: %v", err)
	}
	if ev.RecordingID != "RE456" || ev.DurationMillis != 42000 {
		t.Errorf("event = %+v", ev)
	}
}

func TestTwilioNormalizeRejectsMissingCallSid(t *testing.T) {
	a := NewTwilioAdapter("token", "https://api.example.com", true)
	form := url.Values{"CallStatus": {"ringing"}}
	req := httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(form.Encode()))

	if _, err := a.NormalizeProgress(req, []byte(form.Encode())); !errors.Is(err, ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}
