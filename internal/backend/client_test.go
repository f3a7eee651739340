package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/redsteadz/agentic-interviewer/internal/calls"
)

func TestGetCall_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/call/vapi-123/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"call": {
				"id": "vapi-123",
				"status": "in-progress",
				"createdAt": "2026-08-30T10:00:00Z",
				"startedAt": "2026-08-30T10:00:05Z"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	call, err := c.GetCall(context.Background(), "vapi-123")
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if call.ProviderCallID != "vapi-123" {
		t.Errorf("provider id = %q", call.ProviderCallID)
	}
	if call.Status != calls.StatusInProgress {
		t.Errorf("status = %q", call.Status)
	}
}

func TestListCalls_ForwardsCampaignFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calls/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("campaign_id"); got != "7" {
			t.Errorf("campaign_id = %q", got)
		}
		_, _ = w.Write([]byte(`[{"id": 1, "vapi_call_id": "a", "status": "ended"}]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, nil).ListCalls(context.Background(), "7")
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(got) != 1 || got[0].ProviderCallID != "a" {
		t.Fatalf("unexpected listing %+v", got)
	}
}

func TestMakeCall_PostsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["customer_number"] != "+15550001111" || body["vapi_assistant_id"] != "as-1" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"success": true, "call": {"vapi_call_id": "new", "status": "queued"}}`))
	}))
	defer srv.Close()

	call, err := NewClient(srv.URL, nil).MakeCall(context.Background(), MakeCallRequest{
		CustomerNumber: "+15550001111",
		PhoneNumberRef: "pn-1",
		AssistantRef:   "as-1",
	})
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}
	if call.ProviderCallID != "new" || call.Status != calls.StatusQueued {
		t.Fatalf("unexpected call %+v", call)
	}
}

func TestCancelScheduledCall_IssuesDelete(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"success": true, "message": "Scheduled call deleted"}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, nil).CancelScheduledCall(context.Background(), "42"); err != nil {
		t.Fatalf("CancelScheduledCall: %v", err)
	}
	if method != http.MethodDelete || path != "/scheduled-call/42/" {
		t.Fatalf("got %s %s", method, path)
	}
}

func TestErrorEnvelopeBecomesAppError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Vapi API key not configured"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetCall(context.Background(), "x")
	var app *AppError
	if !errors.As(err, &app) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if app.Status != http.StatusBadRequest || app.Message != "Vapi API key not configured" {
		t.Fatalf("unexpected AppError %+v", app)
	}
}

func TestFieldErrorsAreFlattened(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"scheduled_time": ["Scheduled time must be in the future."], "customer_number": ["This field is required."]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).MakeCall(context.Background(), MakeCallRequest{})
	var app *AppError
	if !errors.As(err, &app) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if !strings.Contains(app.Message, "customer_number: This field is required.") {
		t.Errorf("message = %q", app.Message)
	}
	if !strings.HasPrefix(app.Message, "customer_number:") {
		t.Errorf("fields should be sorted, got %q", app.Message)
	}
}

func TestBareFailureBecomesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).ListAssistants(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", te.Status)
	}
}

func TestNetworkFailureBecomesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL, nil).ListCalls(context.Background(), "")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != 0 || te.Err == nil {
		t.Fatalf("unexpected TransportError %+v", te)
	}
}
