package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Voice markup builders. Twilio (TwiML) and Telnyx (TeXML) share the verb
// vocabulary used here, so one set of structs renders both; only the voice
// attribute and callback paths differ per provider.

type vmlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type vmlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type vmlRecord struct {
	XMLName            xml.Name `xml:"Record"`
	Action             string   `xml:"action,attr"`
	MaxLength          int      `xml:"maxLength,attr"`
	PlayBeep           bool     `xml:"playBeep,attr"`
	FinishOnKey        string   `xml:"finishOnKey,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr"`
}

type vmlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// VoiceMLBuilder renders call-control documents for one provider.
type VoiceMLBuilder struct {
	// Provider selects the callback path prefix and the say voice.
	Provider string
	// BaseURL is the public origin callbacks are routed back to.
	BaseURL string
}

func (b VoiceMLBuilder) voice() string {
	if b.Provider == "twilio" {
		return "Polly.Joanna"
	}
	return "female"
}

func (b VoiceMLBuilder) callbackURL(kind string) string {
	return fmt.Sprintf("%s/webhooks/%s/%s", b.BaseURL, b.Provider, kind)
}

// JournalPrompt greets the caller and starts a transcribed recording.
// maxLength caps entries at five minutes; any DTMF key ends the recording.
func (b VoiceMLBuilder) JournalPrompt(outbound bool) (string, error) {
	var r vmlResponse
	voice := b.voice()

	r.Verbs = append(r.Verbs, vmlSay{Voice: voice, Text: "Welcome to Voice Journal."})
	if outbound {
		r.Verbs = append(r.Verbs, vmlSay{Voice: voice, Text: "It's time for your daily journal entry."})
	}
	r.Verbs = append(r.Verbs, vmlSay{Voice: voice,
		Text: "Please share what's on your mind after the beep. Press any key when you're finished, or I'll stop recording after 5 minutes."})
	r.Verbs = append(r.Verbs, vmlRecord{
		Action:             b.callbackURL("recording"),
		MaxLength:          300,
		PlayBeep:           true,
		FinishOnKey:        "1234567890*#",
		Transcribe:         true,
		TranscribeCallback: b.callbackURL("transcription"),
	})
	r.Verbs = append(r.Verbs, vmlSay{Voice: voice,
		Text: "I didn't receive a recording. Please try again later. Goodbye."})

	return renderVoiceML(r)
}

// RecordingComplete thanks the caller and hangs up.
func (b VoiceMLBuilder) RecordingComplete() (string, error) {
	return b.sayAndHangup("Thank you for sharing. Your journal entry has been saved. Have a wonderful day!")
}

// UnknownCaller turns away numbers with no registered user.
func (b VoiceMLBuilder) UnknownCaller() (string, error) {
	return b.sayAndHangup("Welcome to Voice Journal. We don't recognize this phone number. Please sign up at our website and add your phone number to your profile. Goodbye.")
}

// ErrorClosing is the fallback document; webhook handlers return it with a
// 200 so the provider does not retry into the same failure.
func (b VoiceMLBuilder) ErrorClosing() (string, error) {
	return b.sayAndHangup("Sorry, we encountered an error. Please try again later.")
}

func (b VoiceMLBuilder) sayAndHangup(text string) (string, error) {
	return renderVoiceML(vmlResponse{Verbs: []any{
		vmlSay{Voice: b.voice(), Text: text},
		vmlHangup{},
	}})
}

func renderVoiceML(r vmlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
