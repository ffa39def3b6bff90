package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"voicejournal/internal/calls"
)

// TwilioAdapter handles Twilio's form-encoded webhooks.
//
// Signature scheme: base64(HMAC-SHA1(authToken, url + concat(sorted key+value)))
// carried in the X-Twilio-Signature header. The URL Twilio signed is the
// public one, so it is reconstructed from BaseURL plus the request path.
type TwilioAdapter struct {
	AuthToken string
	// BaseURL is the externally visible origin, e.g. "https://api.example.com".
	BaseURL string
	// SkipVerify disables signature checks. Never enabled in production;
	// config validation rejects it there.
	SkipVerify bool
}

func NewTwilioAdapter(authToken, baseURL string, skipVerify bool) *TwilioAdapter {
	return &TwilioAdapter{AuthToken: authToken, BaseURL: strings.TrimSuffix(baseURL, "/"), SkipVerify: skipVerify}
}

func (a *TwilioAdapter) Name() string { return "twilio" }

func (a *TwilioAdapter) Verify(r *http.Request, raw []byte) error {
	if a.SkipVerify {
		return nil
	}
	sig := r.Header.Get("X-Twilio-Signature")
	if sig == "" {
		return fmt.Errorf("%w: missing X-Twilio-Signature", ErrBadSignature)
	}
	params, err := url.ParseQuery(string(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	signedURL := a.BaseURL + r.URL.RequestURI()
	want := twilioSignature(a.AuthToken, signedURL, params)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(want)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// twilioSignature computes the expected signature: the full URL followed by
// every POST parameter's key and value in key-sorted order, HMAC-SHA1 over
// the auth token, base64 encoded.
func twilioSignature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func twilioForm(raw []byte) (url.Values, error) {
	params, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return params, nil
}

func (a *TwilioAdapter) NormalizeProgress(r *http.Request, raw []byte) (calls.ProgressEvent, error) {
	form, err := twilioForm(raw)
	if err != nil {
		return calls.ProgressEvent{}, err
	}
	callSID := form.Get("CallSid")
	if callSID == "" {
		return calls.ProgressEvent{}, fmt.Errorf("%w: missing CallSid", ErrBadPayload)
	}

	ev := calls.ProgressEvent{
		Provider:      a.Name(),
		CallID:        callSID,
		ProviderState: form.Get("CallStatus"),
		FromNumber:    form.Get("From"),
		ToNumber:      form.Get("To"),
		Direction:     twilioDirection(r, form.Get("Direction")),
	}

	// Outbound dials tag the user on the callback URL.
	if uid := r.URL.Query().Get("userId"); uid != "" {
		ev.SideChannelUserID = uid
	}

	if secs := form.Get("CallDuration"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			ev.ReportedDurationSeconds = n
		}
	}
	return ev, nil
}

func twilioDirection(r *http.Request, twilioDir string) calls.Direction {
	if r.URL.Query().Get("direction") == "outbound" {
		return calls.DirectionOutbound
	}
	if strings.HasPrefix(twilioDir, "outbound") {
		return calls.DirectionOutbound
	}
	return calls.DirectionInbound
}

func (a *TwilioAdapter) NormalizeRecording(r *http.Request, raw []byte) (calls.RecordingEvent, error) {
	form, err := twilioForm(raw)
	if err != nil {
		return calls.RecordingEvent{}, err
	}
	callSID := form.Get("CallSid")
	if callSID == "" {
		return calls.RecordingEvent{}, fmt.Errorf("%w: missing CallSid", ErrBadPayload)
	}
	secs, _ := strconv.Atoi(form.Get("RecordingDuration"))
	return calls.RecordingEvent{
		Provider:       a.Name(),
		CallID:         callSID,
		RecordingID:    form.Get("RecordingSid"),
		RecordingURL:   form.Get("RecordingUrl"),
		DurationMillis: secs * 1000,
	}, nil
}

func (a *TwilioAdapter) NormalizeTranscription(r *http.Request, raw []byte) (calls.TranscriptionEvent, error) {
	form, err := twilioForm(raw)
	if err != nil {
		return calls.TranscriptionEvent{}, err
	}
	callSID := form.Get("CallSid")
	if callSID == "" {
		return calls.TranscriptionEvent{}, fmt.Errorf("%w: missing CallSid", ErrBadPayload)
	}
	return calls.TranscriptionEvent{
		Provider:            a.Name(),
		CallID:              callSID,
		Text:                form.Get("TranscriptionText"),
		TranscriptionStatus: form.Get("TranscriptionStatus"),
	}, nil
}
