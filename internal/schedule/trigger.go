package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Trigger is one recurring daily fire owned by the external scheduler
// service. Payload is frozen at reconciliation time; the dispatcher
// re-validates against live preferences at fire time.
type Trigger struct {
	Name  string `json:"name"`
	Group string `json:"group"`

	// Expression is the UTC cron expression, e.g. "cron(0 14 * * ? *)".
	Expression string `json:"expression"`

	// TargetURL is invoked with Payload when the trigger fires.
	TargetURL string         `json:"target_url"`
	Payload   TriggerPayload `json:"payload"`

	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// TriggerPayload is the minimum the dispatcher needs at fire time.
type TriggerPayload struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"phoneNumber"`
}

// TriggerService is the client contract for the external recurring-trigger
// store. Create and Update return the trigger's handle (an opaque ref the
// reconciler persists onto the user record).
type TriggerService interface {
	Get(ctx context.Context, group, name string) (Trigger, error)
	Create(ctx context.Context, t Trigger) (ref string, err error)
	Update(ctx context.Context, t Trigger) (ref string, err error)
	Delete(ctx context.Context, group, name string) error
}

var (
	ErrTriggerNotFound = errors.New("schedule: trigger not found")
	ErrInvalidArgument = errors.New("schedule: invalid argument")
)

// HTTPTriggerService talks to the scheduler service's REST API:
//
//	GET    /v1/groups/{group}/schedules/{name}
//	PUT    /v1/groups/{group}/schedules/{name}   (create or replace)
//	DELETE /v1/groups/{group}/schedules/{name}
type HTTPTriggerService struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTriggerService(baseURL string) *HTTPTriggerService {
	return &HTTPTriggerService{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type triggerResponse struct {
	Ref string `json:"ref"`
	Trigger
}

func (s *HTTPTriggerService) scheduleURL(group, name string) string {
	return fmt.Sprintf("%s/v1/groups/%s/schedules/%s",
		s.BaseURL, url.PathEscape(group), url.PathEscape(name))
}

func (s *HTTPTriggerService) Get(ctx context.Context, group, name string) (Trigger, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.scheduleURL(group, name), nil)
	if err != nil {
		return Trigger{}, err
	}
	var out triggerResponse
	if err := s.do(req, &out); err != nil {
		return Trigger{}, err
	}
	return out.Trigger, nil
}

func (s *HTTPTriggerService) Create(ctx context.Context, t Trigger) (string, error) {
	return s.put(ctx, t)
}

func (s *HTTPTriggerService) Update(ctx context.Context, t Trigger) (string, error) {
	return s.put(ctx, t)
}

func (s *HTTPTriggerService) put(ctx context.Context, t Trigger) (string, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.scheduleURL(t.Group, t.Name), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	var out triggerResponse
	if err := s.do(req, &out); err != nil {
		return "", err
	}
	if out.Ref == "" {
		return "", fmt.Errorf("schedule: trigger service returned no ref for %s/%s", t.Group, t.Name)
	}
	return out.Ref, nil
}

func (s *HTTPTriggerService) Delete(ctx context.Context, group, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.scheduleURL(group, name), nil)
	if err != nil {
		return err
	}
	return s.do(req, nil)
}

func (s *HTTPTriggerService) do(req *http.Request, out any) error {
	res, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("schedule: trigger service request failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrTriggerNotFound
	case res.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("schedule: trigger service returned %d: %s", res.StatusCode, bytes.TrimSpace(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("schedule: decode trigger service response: %w", err)
	}
	return nil
}

// MemoryTriggerService is an in-memory TriggerService useful for tests.
type MemoryTriggerService struct {
	mu       sync.Mutex
	triggers map[string]Trigger

	// FailNext forces the next mutating call to fail, for upstream-error tests.
	FailNext error
}

func NewMemoryTriggerService() *MemoryTriggerService {
	return &MemoryTriggerService{triggers: make(map[string]Trigger)}
}

func key(group, name string) string { return group + "/" + name }

func (s *MemoryTriggerService) Get(ctx context.Context, group, name string) (Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[key(group, name)]
	if !ok {
		return Trigger{}, ErrTriggerNotFound
	}
	return t, nil
}

func (s *MemoryTriggerService) Create(ctx context.Context, t Trigger) (string, error) {
	return s.store(t)
}

func (s *MemoryTriggerService) Update(ctx context.Context, t Trigger) (string, error) {
	return s.store(t)
}

func (s *MemoryTriggerService) store(t Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return "", err
	}
	s.triggers[key(t.Group, t.Name)] = t
	return "trigger/" + t.Group + "/" + t.Name, nil
}

func (s *MemoryTriggerService) Delete(ctx context.Context, group, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return err
	}
	if _, ok := s.triggers[key(group, name)]; !ok {
		return ErrTriggerNotFound
	}
	delete(s.triggers, key(group, name))
	return nil
}

// Len reports the number of stored triggers.
func (s *MemoryTriggerService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triggers)
}
