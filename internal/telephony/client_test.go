package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelnyxCallClientDial(t *testing.T) {
	var got telnyxDialRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/calls" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key-123" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode dial request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"call_control_id":"cc-77"}}`))
	}))
	defer srv.Close()

	c := NewTelnyxCallClient("key-123", "conn-1", "https://api.example.com")
	c.APIBaseURL = srv.URL

	callID, err := c.Dial(context.Background(), DialRequest{
		To: "+15551230001", From: "+15550000000", UserID: "u-42",
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if callID != "cc-77" {
		t.Errorf("callID = %q", callID)
	}
	if got.ConnectionID != "conn-1" || got.To != "+15551230001" || got.From != "+15550000000" {
		t.Errorf("dial request = %+v", got)
	}
	if !strings.Contains(got.WebhookURL, "userId=u-42") || !strings.Contains(got.WebhookURL, "direction=outbound") {
		t.Errorf("webhook url = %q", got.WebhookURL)
	}

	dec, err := base64.StdEncoding.DecodeString(got.ClientState)
	if err != nil {
		t.Fatalf("client_state not base64: %v", err)
	}
	var cs clientState
	if err := json.Unmarshal(dec, &cs); err != nil || cs.UserID != "u-42" {
		t.Errorf("client_state = %s", dec)
	}
}

func TestTelnyxCallClientDialErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"title":"invalid connection"}]}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewTelnyxCallClient("key", "conn", "https://api.example.com")
	c.APIBaseURL = srv.URL

	if _, err := c.Dial(context.Background(), DialRequest{To: "+1555", From: "+1556", UserID: "u"}); err == nil {
		t.Fatal("expected error on 422 response")
	}

	if _, err := c.Dial(context.Background(), DialRequest{UserID: "u"}); err == nil {
		t.Fatal("expected error on missing numbers")
	}
}
