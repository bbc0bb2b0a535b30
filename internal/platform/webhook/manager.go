// Package webhook delivers prescription lifecycle events to registered
// HTTP endpoints. Endpoints subscribe per branch to event patterns,
// payloads are signed with HMAC-SHA256, and every delivery attempt is
// logged and can be retried.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Endpoint statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Delivery statuses.
const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// Endpoint is a registered webhook destination. An endpoint with a nil
// BranchID receives events from every branch.
type Endpoint struct {
	ID        uuid.UUID  `json:"id"`
	URL       string     `json:"url"`
	Secret    string     `json:"secret,omitempty"`
	Events    []string   `json:"events"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Event is a single lifecycle notification. Reference carries the
// human-readable code of the record the event is about.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Reference string          `json:"reference"`
	BranchID  uuid.UUID       `json:"branch_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Delivery records one attempt to deliver an event to one endpoint.
type Delivery struct {
	ID           uuid.UUID     `json:"id"`
	EndpointID   uuid.UUID     `json:"endpoint_id"`
	EventType    string        `json:"event_type"`
	EventID      uuid.UUID     `json:"event_id"`
	Payload      []byte        `json:"payload"`
	Signature    string        `json:"signature"`
	StatusCode   int           `json:"status_code"`
	ResponseBody string        `json:"response_body"`
	Duration     time.Duration `json:"duration_ns"`
	Attempt      int           `json:"attempt"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Result summarises one endpoint's outcome for a delivered event.
type Result struct {
	EndpointID uuid.UUID `json:"endpoint_id"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
}

// Store persists endpoints and delivery attempts.
type Store interface {
	CreateEndpoint(ctx context.Context, ep *Endpoint) error
	GetEndpoint(ctx context.Context, id uuid.UUID) (*Endpoint, error)
	// ListEndpoints filters by branch; uuid.Nil returns every endpoint.
	ListEndpoints(ctx context.Context, branchID uuid.UUID, limit, offset int) ([]*Endpoint, int, error)
	UpdateEndpoint(ctx context.Context, ep *Endpoint) error
	DeleteEndpoint(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *Delivery) error
	ListDeliveries(ctx context.Context, endpointID uuid.UUID, limit, offset int) ([]*Delivery, int, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (*Delivery, error)
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu         sync.RWMutex
	endpoints  map[uuid.UUID]*Endpoint
	deliveries map[uuid.UUID]*Delivery
	// ordered keys for deterministic pagination
	endpointOrder []uuid.UUID
	deliveryOrder []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		endpoints:  make(map[uuid.UUID]*Endpoint),
		deliveries: make(map[uuid.UUID]*Delivery),
	}
}

func (s *MemoryStore) CreateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[ep.ID] = ep
	s.endpointOrder = append(s.endpointOrder, ep.ID)
	return nil
}

func (s *MemoryStore) GetEndpoint(_ context.Context, id uuid.UUID) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %s not found", id)
	}
	return ep, nil
}

func (s *MemoryStore) ListEndpoints(_ context.Context, branchID uuid.UUID, limit, offset int) ([]*Endpoint, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*Endpoint
	for _, id := range s.endpointOrder {
		ep := s.endpoints[id]
		if ep == nil {
			continue
		}
		if branchID == uuid.Nil || ep.BranchID == nil || *ep.BranchID == branchID {
			filtered = append(filtered, ep)
		}
	}
	return page(filtered, limit, offset)
}

func (s *MemoryStore) UpdateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return fmt.Errorf("endpoint %s not found", ep.ID)
	}
	s.endpoints[ep.ID] = ep
	return nil
}

func (s *MemoryStore) DeleteEndpoint(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return fmt.Errorf("endpoint %s not found", id)
	}
	delete(s.endpoints, id)
	for i, eid := range s.endpointOrder {
		if eid == id {
			s.endpointOrder = append(s.endpointOrder[:i], s.endpointOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) RecordDelivery(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		s.deliveryOrder = append(s.deliveryOrder, d.ID)
	}
	s.deliveries[d.ID] = d
	return nil
}

func (s *MemoryStore) ListDeliveries(_ context.Context, endpointID uuid.UUID, limit, offset int) ([]*Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*Delivery
	for _, id := range s.deliveryOrder {
		d := s.deliveries[id]
		if d != nil && d.EndpointID == endpointID {
			filtered = append(filtered, d)
		}
	}
	return page(filtered, limit, offset)
}

func (s *MemoryStore) GetDelivery(_ context.Context, id uuid.UUID) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("delivery %s not found", id)
	}
	return d, nil
}

func page[T any](items []T, limit, offset int) ([]T, int, error) {
	total := len(items)
	if offset >= total {
		return []T{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

// SignPayload computes the hex-encoded HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of
// payload under secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// Manager orchestrates endpoint registration and event delivery.
type Manager struct {
	store      Store
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewManager(store Store, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// RegisterEndpoint validates and persists a new endpoint. When secret is
// empty a cryptographically random one is generated; it is returned once
// on the created endpoint and the caller must keep it.
func (m *Manager) RegisterEndpoint(ctx context.Context, rawURL, secret string, branchID *uuid.UUID, events []string) (*Endpoint, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event pattern is required")
	}
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		secret = s
	}

	ep := &Endpoint{
		ID:        uuid.New(),
		URL:       rawURL,
		Secret:    secret,
		Events:    events,
		BranchID:  branchID,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func (m *Manager) PauseEndpoint(ctx context.Context, id uuid.UUID) error {
	return m.setStatus(ctx, id, StatusPaused)
}

func (m *Manager) ResumeEndpoint(ctx context.Context, id uuid.UUID) error {
	return m.setStatus(ctx, id, StatusActive)
}

func (m *Manager) setStatus(ctx context.Context, id uuid.UUID, status string) error {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	ep.Status = status
	return m.store.UpdateEndpoint(ctx, ep)
}

// eventMatches matches an event type against a subscription pattern.
// Patterns are exact ("prescription.done") or wildcard on either side
// ("prescription.*", "*.cancelled").
func eventMatches(pattern, eventType string) bool {
	if pattern == eventType {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(eventType, pattern[1:])
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

func endpointMatches(ep *Endpoint, eventType string) bool {
	for _, pat := range ep.Events {
		if eventMatches(pat, eventType) {
			return true
		}
	}
	return false
}

// Deliver sends the event to every active endpoint subscribed to its type
// on the event's branch.
func (m *Manager) Deliver(ctx context.Context, event Event) []Result {
	endpoints, _, err := m.store.ListEndpoints(ctx, event.BranchID, 1000, 0)
	if err != nil {
		m.logger.Error().Err(err).Msg("webhook endpoint lookup failed")
		return nil
	}

	var results []Result
	for _, ep := range endpoints {
		if ep.Status != StatusActive || !endpointMatches(ep, event.Type) {
			continue
		}
		d := m.deliverTo(ctx, ep, event)
		results = append(results, Result{
			EndpointID: ep.ID,
			Success:    d.Status == DeliverySuccess,
			StatusCode: d.StatusCode,
			Error:      d.Error,
		})
	}
	return results
}

// deliverTo signs the event payload, POSTs it, and records the attempt.
func (m *Manager) deliverTo(ctx context.Context, ep *Endpoint, event Event) *Delivery {
	payload, _ := json.Marshal(event)
	sig := SignPayload(payload, ep.Secret)
	now := time.Now()

	d := &Delivery{
		ID:         uuid.New(),
		EndpointID: ep.ID,
		EventType:  event.Type,
		EventID:    event.ID,
		Payload:    payload,
		Signature:  sig,
		Attempt:    1,
		CreatedAt:  now,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return m.recordFailure(ctx, d, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+sig)
	req.Header.Set("X-Webhook-ID", ep.ID.String())
	req.Header.Set("X-Webhook-Timestamp", now.UTC().Format(time.RFC3339))

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	d.Duration = time.Since(start)
	if err != nil {
		return m.recordFailure(ctx, d, err.Error())
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode

	// Keep at most 1KB of the response body in the log.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	d.ResponseBody = string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.Status = DeliverySuccess
		m.store.RecordDelivery(ctx, d)
		return d
	}
	return m.recordFailure(ctx, d, fmt.Sprintf("non-2xx response: %d", resp.StatusCode))
}

func (m *Manager) recordFailure(ctx context.Context, d *Delivery, reason string) *Delivery {
	d.Status = DeliveryFailed
	d.Error = reason
	m.store.RecordDelivery(ctx, d)
	m.logger.Warn().
		Str("endpoint", d.EndpointID.String()).
		Str("event", d.EventType).
		Str("error", reason).
		Msg("webhook delivery failed")
	return d
}

// RetryDelivery re-sends a previously recorded attempt, incrementing its
// attempt counter.
func (m *Manager) RetryDelivery(ctx context.Context, deliveryID uuid.UUID) (*Delivery, error) {
	original, err := m.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("delivery not found: %w", err)
	}
	ep, err := m.store.GetEndpoint(ctx, original.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("endpoint not found: %w", err)
	}

	var event Event
	if err := json.Unmarshal(original.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal original payload: %w", err)
	}

	d := m.deliverTo(ctx, ep, event)
	d.Attempt = original.Attempt + 1
	m.store.RecordDelivery(ctx, d)
	return d, nil
}

// TestEndpoint sends a synthetic event to verify connectivity.
func (m *Manager) TestEndpoint(ctx context.Context, endpointID uuid.UUID) (*Delivery, error) {
	ep, err := m.store.GetEndpoint(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("endpoint not found: %w", err)
	}

	var branch uuid.UUID
	if ep.BranchID != nil {
		branch = *ep.BranchID
	}
	event := Event{
		ID:        uuid.New(),
		Type:      "webhook.test",
		Reference: ep.ID.String(),
		BranchID:  branch,
		Payload:   json.RawMessage(`{"test":true}`),
		Timestamp: time.Now(),
	}
	return m.deliverTo(ctx, ep, event), nil
}

// DeliveryLogs returns paginated delivery attempts for an endpoint.
func (m *Manager) DeliveryLogs(ctx context.Context, endpointID uuid.UUID, limit, offset int) ([]*Delivery, int, error) {
	return m.store.ListDeliveries(ctx, endpointID, limit, offset)
}
