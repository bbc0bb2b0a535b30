package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestManager(client *http.Client) *Manager {
	var opts []Option
	if client != nil {
		opts = append(opts, WithHTTPClient(client))
	}
	return NewManager(NewMemoryStore(), zerolog.Nop(), opts...)
}

func mustRegister(t *testing.T, m *Manager, url string, branchID *uuid.UUID, events []string) *Endpoint {
	t.Helper()
	ep, err := m.RegisterEndpoint(context.Background(), url, "test-secret", branchID, events)
	if err != nil {
		t.Fatalf("register endpoint: %v", err)
	}
	return ep
}

func testEvent(branchID uuid.UUID, eventType string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Reference: "PH00001",
		BranchID:  branchID,
		Payload:   json.RawMessage(`{"reference":"PH00001"}`),
		Timestamp: time.Now(),
	}
}

func TestRegisterEndpoint(t *testing.T) {
	m := newTestManager(nil)
	branch := uuid.New()
	ep, err := m.RegisterEndpoint(context.Background(), "https://example.com/hook", "my-secret", &branch, []string{"prescription.done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.ID == uuid.Nil {
		t.Error("expected id set")
	}
	if ep.Status != StatusActive {
		t.Errorf("expected active status, got %q", ep.Status)
	}
	if ep.Secret != "my-secret" {
		t.Errorf("expected caller secret kept, got %q", ep.Secret)
	}
}

func TestRegisterEndpoint_GeneratesSecret(t *testing.T) {
	m := newTestManager(nil)
	ep, err := m.RegisterEndpoint(context.Background(), "https://example.com/hook", "", nil, []string{"prescription.*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ep.Secret) < 32 {
		t.Errorf("expected generated secret, got %q", ep.Secret)
	}
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	m := newTestManager(nil)
	for _, url := range []string{"", "example.com/hook", "ftp://example.com/hook"} {
		if _, err := m.RegisterEndpoint(context.Background(), url, "s", nil, []string{"prescription.*"}); err == nil {
			t.Errorf("expected error for url %q", url)
		}
	}
	if _, err := m.RegisterEndpoint(context.Background(), "https://example.com/hook", "s", nil, nil); err == nil {
		t.Error("expected error for empty event list")
	}
}

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"type":"prescription.done","reference":"PH00001"}`)
	sig := SignPayload(payload, "secret-key")
	if sig != SignPayload(payload, "secret-key") {
		t.Error("expected deterministic signatures")
	}
	if !VerifySignature(payload, "secret-key", sig) {
		t.Error("expected valid signature to verify")
	}
	if VerifySignature(payload, "wrong-secret", sig) {
		t.Error("expected wrong secret to fail")
	}
	if VerifySignature(payload, "secret-key", "bogus") {
		t.Error("expected bogus signature to fail")
	}
}

func TestDeliver(t *testing.T) {
	var receivedBody []byte
	var sigHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		sigHeader = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	ep := mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})

	results := m.Deliver(context.Background(), testEvent(branch, "prescription.done"))
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected 1 successful result, got %+v", results)
	}
	if len(receivedBody) == 0 {
		t.Error("expected payload delivered")
	}
	if !strings.HasPrefix(sigHeader, "sha256=") {
		t.Errorf("expected signature header, got %q", sigHeader)
	}
	if !VerifySignature(receivedBody, ep.Secret, strings.TrimPrefix(sigHeader, "sha256=")) {
		t.Error("expected delivered signature to verify against the body")
	}
}

func TestDeliver_EventFiltering(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})

	if results := m.Deliver(context.Background(), testEvent(branch, "prescription.created")); len(results) != 0 {
		t.Errorf("expected no delivery for unsubscribed event, got %d", len(results))
	}
	if calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}
}

func TestDeliver_Wildcards(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.*"})

	for _, typ := range []string{"prescription.created", "prescription.done", "prescription.cancelled"} {
		if results := m.Deliver(context.Background(), testEvent(branch, typ)); len(results) != 1 {
			t.Errorf("expected prescription.* to match %s", typ)
		}
	}
	if results := m.Deliver(context.Background(), testEvent(branch, "stock.received")); len(results) != 0 {
		t.Error("expected prescription.* not to match stock.received")
	}
}

func TestDeliver_BranchScoping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branchA, branchB := uuid.New(), uuid.New()
	mustRegister(t, m, ts.URL+"/a", &branchA, []string{"prescription.*"})
	mustRegister(t, m, ts.URL+"/all", nil, []string{"prescription.*"})

	// Branch B events reach only the unscoped endpoint.
	results := m.Deliver(context.Background(), testEvent(branchB, "prescription.done"))
	if len(results) != 1 {
		t.Errorf("expected 1 delivery for branch B, got %d", len(results))
	}
	results = m.Deliver(context.Background(), testEvent(branchA, "prescription.done"))
	if len(results) != 2 {
		t.Errorf("expected 2 deliveries for branch A, got %d", len(results))
	}
}

func TestDeliver_PausedSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	ep := mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})
	if err := m.PauseEndpoint(context.Background(), ep.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if results := m.Deliver(context.Background(), testEvent(branch, "prescription.done")); len(results) != 0 {
		t.Errorf("expected paused endpoint skipped, got %d results", len(results))
	}

	if err := m.ResumeEndpoint(context.Background(), ep.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if results := m.Deliver(context.Background(), testEvent(branch, "prescription.done")); len(results) != 1 {
		t.Error("expected resumed endpoint to receive events again")
	}
}

func TestDeliver_FailureRecorded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	ep := mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})

	results := m.Deliver(context.Background(), testEvent(branch, "prescription.done"))
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected failed delivery, got %+v", results)
	}

	logs, total, err := m.DeliveryLogs(context.Background(), ep.ID, 10, 0)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 logged delivery, got %d", total)
	}
	if logs[0].Status != DeliveryFailed {
		t.Errorf("expected failed status, got %q", logs[0].Status)
	}
	if logs[0].ResponseBody != "boom" {
		t.Errorf("expected response body captured, got %q", logs[0].ResponseBody)
	}
}

func TestRetryDelivery(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	ep := mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})
	m.Deliver(context.Background(), testEvent(branch, "prescription.done"))

	logs, _, _ := m.DeliveryLogs(context.Background(), ep.ID, 10, 0)
	if len(logs) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(logs))
	}

	retry, err := m.RetryDelivery(context.Background(), logs[0].ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Status != DeliverySuccess {
		t.Errorf("expected retry success, got %q", retry.Status)
	}
	if retry.Attempt != 2 {
		t.Errorf("expected attempt 2, got %d", retry.Attempt)
	}
}

func TestRetryDelivery_NotFound(t *testing.T) {
	m := newTestManager(nil)
	if _, err := m.RetryDelivery(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown delivery")
	}
}

func TestTestEndpoint(t *testing.T) {
	var webhookID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookID = r.Header.Get("X-Webhook-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	ep := mustRegister(t, m, ts.URL+"/hook", nil, []string{"prescription.*"})

	d, err := m.TestEndpoint(context.Background(), ep.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != DeliverySuccess {
		t.Errorf("expected success, got %q", d.Status)
	}
	if d.EventType != "webhook.test" {
		t.Errorf("expected webhook.test event, got %q", d.EventType)
	}
	if webhookID != ep.ID.String() {
		t.Errorf("expected endpoint id header, got %q", webhookID)
	}
}

func TestDeliveryLogs_Pagination(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := newTestManager(ts.Client())
	branch := uuid.New()
	ep := mustRegister(t, m, ts.URL+"/hook", &branch, []string{"prescription.done"})
	for i := 0; i < 5; i++ {
		m.Deliver(context.Background(), testEvent(branch, "prescription.done"))
	}

	logs, total, err := m.DeliveryLogs(context.Background(), ep.ID, 3, 0)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(logs) != 3 {
		t.Errorf("expected 3 logs, got %d", len(logs))
	}
}
