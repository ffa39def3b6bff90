package telephony

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DialRequest asks a provider to place an outbound call.
type DialRequest struct {
	To     string
	From   string
	UserID string
}

// CallClient places outbound calls at a provider. Returns the provider's
// call id, which becomes the call record's key.
type CallClient interface {
	Dial(ctx context.Context, req DialRequest) (callID string, err error)
}

// TelnyxCallClient dials through the Telnyx Call Control API.
// The user id rides along twice: base64 JSON in client_state and a userId
// query parameter on the webhook URL, so either survives provider quirks.
type TelnyxCallClient struct {
	APIKey       string
	ConnectionID string
	// WebhookBaseURL is where Telnyx posts call events back to.
	WebhookBaseURL string

	// APIBaseURL overrides the Telnyx API origin, for tests.
	APIBaseURL string
	HTTPClient *http.Client
}

func NewTelnyxCallClient(apiKey, connectionID, webhookBaseURL string) *TelnyxCallClient {
	return &TelnyxCallClient{
		APIKey:         apiKey,
		ConnectionID:   connectionID,
		WebhookBaseURL: webhookBaseURL,
		APIBaseURL:     "https://api.telnyx.com",
		HTTPClient:     &http.Client{Timeout: 15 * time.Second},
	}
}

type telnyxDialRequest struct {
	ConnectionID              string `json:"connection_id"`
	To                        string `json:"to"`
	From                      string `json:"from"`
	AnsweringMachineDetection string `json:"answering_machine_detection,omitempty"`
	WebhookURL                string `json:"webhook_url"`
	WebhookURLMethod          string `json:"webhook_url_method"`
	ClientState               string `json:"client_state,omitempty"`
}

type telnyxDialResponse struct {
	Data struct {
		CallControlID string `json:"call_control_id"`
	} `json:"data"`
}

func (c *TelnyxCallClient) Dial(ctx context.Context, req DialRequest) (string, error) {
	if req.To == "" || req.From == "" {
		return "", fmt.Errorf("telephony: dial needs both to and from numbers")
	}

	state, _ := json.Marshal(clientState{UserID: req.UserID})
	body, err := json.Marshal(telnyxDialRequest{
		ConnectionID:              c.ConnectionID,
		To:                        req.To,
		From:                      req.From,
		AnsweringMachineDetection: "detect",
		WebhookURL: fmt.Sprintf("%s/webhooks/telnyx/voice?direction=outbound&userId=%s",
			c.WebhookBaseURL, url.QueryEscape(req.UserID)),
		WebhookURLMethod: "POST",
		ClientState:      base64.StdEncoding.EncodeToString(state),
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v2/calls", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	res, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("telephony: telnyx dial request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("telephony: telnyx dial returned %d: %s", res.StatusCode, bytes.TrimSpace(b))
	}

	var out telnyxDialResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("telephony: decode telnyx dial response: %w", err)
	}
	if out.Data.CallControlID == "" {
		return "", fmt.Errorf("telephony: telnyx dial returned no call_control_id")
	}
	return out.Data.CallControlID, nil
}
