package telephony

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voicejournal/internal/calls"
)

// TelnyxAdapter handles Telnyx's JSON webhooks.
//
// Signature scheme: Ed25519 over "timestamp|rawBody", signature and
// timestamp carried in the telnyx-signature-ed25519 and telnyx-timestamp
// headers, public key distributed base64-encoded.
type TelnyxAdapter struct {
	// PublicKey is the base64-encoded Ed25519 verification key.
	PublicKey  string
	SkipVerify bool
}

func NewTelnyxAdapter(publicKey string, skipVerify bool) *TelnyxAdapter {
	return &TelnyxAdapter{PublicKey: publicKey, SkipVerify: skipVerify}
}

func (a *TelnyxAdapter) Name() string { return "telnyx" }

func (a *TelnyxAdapter) Verify(r *http.Request, raw []byte) error {
	if a.SkipVerify {
		return nil
	}
	sigB64 := r.Header.Get("telnyx-signature-ed25519")
	timestamp := r.Header.Get("telnyx-timestamp")
	if sigB64 == "" || timestamp == "" {
		return fmt.Errorf("%w: missing telnyx signature headers", ErrBadSignature)
	}

	key, err := base64.StdEncoding.DecodeString(a.PublicKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("telnyx: bad public key configuration")
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("%w: signature not base64", ErrBadSignature)
	}

	signed := make([]byte, 0, len(timestamp)+1+len(raw))
	signed = append(signed, timestamp...)
	signed = append(signed, '|')
	signed = append(signed, raw...)

	if !ed25519.Verify(ed25519.PublicKey(key), signed, sig) {
		return ErrBadSignature
	}
	return nil
}

// telnyxEnvelope is the common webhook wrapper.
type telnyxEnvelope struct {
	Data struct {
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	} `json:"data"`
}

type telnyxCallPayload struct {
	CallControlID string `json:"call_control_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Direction     string `json:"direction"`
	State         string `json:"state"`
	ClientState   string `json:"client_state"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type telnyxRecordingPayload struct {
	CallControlID string `json:"call_control_id"`
	RecordingID   string `json:"recording_id"`
	RecordingURLs struct {
		MP3 string `json:"mp3"`
		WAV string `json:"wav"`
	} `json:"recording_urls"`
	DurationMillis int `json:"duration_millis"`
}

type telnyxTranscriptionPayload struct {
	CallControlID     string `json:"call_control_id"`
	TranscriptionText string `json:"transcription_text"`
	Status            string `json:"status"`
}

func decodeTelnyx(raw []byte, payload any) (eventType string, err error) {
	var env telnyxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(env.Data.Payload) > 0 {
		if err := json.Unmarshal(env.Data.Payload, payload); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
	}
	return env.Data.EventType, nil
}

// clientState is the side-channel blob attached to outbound dials,
// base64-encoded JSON. A bare base64 user id (legacy shape) is accepted too.
type clientState struct {
	UserID string `json:"userId"`
}

func decodeClientState(b64 string) string {
	if b64 == "" {
		return ""
	}
	dec, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return ""
	}
	var cs clientState
	if err := json.Unmarshal(dec, &cs); err == nil && cs.UserID != "" {
		return cs.UserID
	}
	return string(dec)
}

func (a *TelnyxAdapter) NormalizeProgress(r *http.Request, raw []byte) (calls.ProgressEvent, error) {
	var p telnyxCallPayload
	eventType, err := decodeTelnyx(raw, &p)
	if err != nil {
		return calls.ProgressEvent{}, err
	}
	if p.CallControlID == "" {
		return calls.ProgressEvent{}, fmt.Errorf("%w: missing call_control_id", ErrBadPayload)
	}

	ev := calls.ProgressEvent{
		Provider:          a.Name(),
		CallID:            p.CallControlID,
		EventType:         eventType,
		ProviderState:     p.State,
		FromNumber:        p.From,
		ToNumber:          p.To,
		Direction:         telnyxDirection(r, p.Direction),
		SideChannelUserID: decodeClientState(p.ClientState),
	}
	if uid := r.URL.Query().Get("userId"); uid != "" {
		ev.SideChannelUserID = uid
	}

	if eventType == "call.hangup" {
		if start, err := time.Parse(time.RFC3339, p.StartTime); err == nil {
			if end, err := time.Parse(time.RFC3339, p.EndTime); err == nil {
				ev.StartedAt, ev.EndedAt = start, end
			}
		}
	}
	return ev, nil
}

func telnyxDirection(r *http.Request, dir string) calls.Direction {
	if r.URL.Query().Get("direction") == "outbound" || dir == "outgoing" {
		return calls.DirectionOutbound
	}
	return calls.DirectionInbound
}

func (a *TelnyxAdapter) NormalizeRecording(r *http.Request, raw []byte) (calls.RecordingEvent, error) {
	var p telnyxRecordingPayload
	eventType, err := decodeTelnyx(raw, &p)
	if err != nil {
		return calls.RecordingEvent{}, err
	}
	if eventType != "call.recording.saved" {
		return calls.RecordingEvent{}, fmt.Errorf("%w: unexpected event %q", ErrBadPayload, eventType)
	}
	if p.CallControlID == "" {
		return calls.RecordingEvent{}, fmt.Errorf("%w: missing call_control_id", ErrBadPayload)
	}
	url := p.RecordingURLs.MP3
	if url == "" {
		url = p.RecordingURLs.WAV
	}
	return calls.RecordingEvent{
		Provider:       a.Name(),
		CallID:         p.CallControlID,
		RecordingID:    p.RecordingID,
		RecordingURL:   url,
		DurationMillis: p.DurationMillis,
	}, nil
}

func (a *TelnyxAdapter) NormalizeTranscription(r *http.Request, raw []byte) (calls.TranscriptionEvent, error) {
	var p telnyxTranscriptionPayload
	eventType, err := decodeTelnyx(raw, &p)
	if err != nil {
		return calls.TranscriptionEvent{}, err
	}
	if eventType != "call.transcription" {
		return calls.TranscriptionEvent{}, fmt.Errorf("%w: unexpected event %q", ErrBadPayload, eventType)
	}
	if p.CallControlID == "" {
		return calls.TranscriptionEvent{}, fmt.Errorf("%w: missing call_control_id", ErrBadPayload)
	}
	return calls.TranscriptionEvent{
		Provider:            a.Name(),
		CallID:              p.CallControlID,
		Text:                p.TranscriptionText,
		TranscriptionStatus: p.Status,
	}, nil
}
