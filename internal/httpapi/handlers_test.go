package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redsteadz/agentic-interviewer/internal/backend"
	"github.com/redsteadz/agentic-interviewer/internal/calls"
	"github.com/redsteadz/agentic-interviewer/internal/schedule"
	"github.com/redsteadz/agentic-interviewer/internal/transcript"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCallAPI struct {
	made    []backend.MakeCallRequest
	makeErr error
	listing []calls.Call
	listErr error
}

func (f *fakeCallAPI) MakeCall(ctx context.Context, req backend.MakeCallRequest) (calls.Call, error) {
	if f.makeErr != nil {
		return calls.Call{}, f.makeErr
	}
	f.made = append(f.made, req)
	return calls.Call{ProviderCallID: "vapi-1", Status: calls.StatusQueued, CustomerNumber: req.CustomerNumber}, nil
}

func (f *fakeCallAPI) GetCall(ctx context.Context, id string) (calls.Call, error) {
	for _, c := range f.listing {
		if c.ProviderCallID == id {
			return c, nil
		}
	}
	return calls.Call{}, &backend.AppError{Status: http.StatusNotFound, Message: "call not found"}
}

func (f *fakeCallAPI) ListCalls(ctx context.Context, campaignID string) ([]calls.Call, error) {
	return f.listing, f.listErr
}

// liveCallAPI backs the real poller in tests that exercise tracking across
// request boundaries. GetCall always reports the call still in progress.
type liveCallAPI struct {
	mu      sync.Mutex
	fetches int
	fetched chan struct{}
}

func (f *liveCallAPI) MakeCall(ctx context.Context, req backend.MakeCallRequest) (calls.Call, error) {
	return calls.Call{ProviderCallID: "vapi-live", Status: calls.StatusQueued, CustomerNumber: req.CustomerNumber}, nil
}

func (f *liveCallAPI) GetCall(ctx context.Context, id string) (calls.Call, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	select {
	case f.fetched <- struct{}{}:
	default:
	}
	return calls.Call{ProviderCallID: id, Status: calls.StatusInProgress}, nil
}

func (f *liveCallAPI) ListCalls(ctx context.Context, campaignID string) ([]calls.Call, error) {
	return nil, nil
}

type fakeTracker struct {
	tracked []calls.Call
	current *calls.Call
}

func (f *fakeTracker) Track(ctx context.Context, c calls.Call) { f.tracked = append(f.tracked, c) }

func (f *fakeTracker) Current() (calls.Call, bool) {
	if f.current == nil {
		return calls.Call{}, false
	}
	return *f.current, true
}

type fakeScheduler struct {
	created   []schedule.Form
	createErr error
	listing   []schedule.ScheduledCall
	cancelErr error
	cancelled []string
}

func (f *fakeScheduler) Create(ctx context.Context, form schedule.Form) (schedule.ScheduledCall, error) {
	if f.createErr != nil {
		return schedule.ScheduledCall{}, f.createErr
	}
	f.created = append(f.created, form)
	return schedule.ScheduledCall{ID: "sc-1", Status: schedule.StatusScheduled}, nil
}

func (f *fakeScheduler) List(ctx context.Context, campaignID string) ([]schedule.ScheduledCall, error) {
	return f.listing, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func router(h Handlers) *gin.Engine {
	r := gin.New()
	v1 := r.Group("/v1")
	v1.POST("/calls", h.MakeCall)
	v1.GET("/calls", h.ListCalls)
	v1.GET("/calls/current", h.CurrentCall)
	v1.GET("/calls/:id", h.GetCall)
	v1.GET("/transcripts", h.SearchTranscripts)
	v1.GET("/scheduled", h.ListScheduled)
	v1.POST("/scheduled", h.CreateScheduled)
	v1.DELETE("/scheduled/:id", h.CancelScheduled)
	v1.GET("/stats", h.CallStats)
	return r
}

func TestMakeCall_TracksNewCall(t *testing.T) {
	api := &fakeCallAPI{}
	tracker := &fakeTracker{}
	r := router(Handlers{Calls: api, Poller: tracker})

	body := `{"customer_number": "+15550001111", "twilio_phone_number_id": "pn-1", "vapi_assistant_id": "as-1"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/calls", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(api.made) != 1 || api.made[0].CustomerNumber != "+15550001111" {
		t.Fatalf("unexpected make requests %+v", api.made)
	}
	if len(tracker.tracked) != 1 || tracker.tracked[0].ProviderCallID != "vapi-1" {
		t.Fatalf("expected new call handed to the poller, got %+v", tracker.tracked)
	}
}

func TestMakeCall_PollingOutlivesRequest(t *testing.T) {
	api := &liveCallAPI{fetched: make(chan struct{}, 8)}
	p := calls.NewPoller(api, 20*time.Millisecond)
	defer p.Stop()

	srv := httptest.NewServer(router(Handlers{Calls: api, Poller: p, Base: context.Background()}))
	defer srv.Close()

	body := `{"customer_number": "+15550001111", "twilio_phone_number_id": "pn-1", "vapi_assistant_id": "as-1"}`
	resp, err := http.Post(srv.URL+"/v1/calls", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// The response is fully written; the loop must keep refreshing on its
	// own ticks, not die with the request context.
	for i := 0; i < 3; i++ {
		select {
		case <-api.fetched:
		case <-time.After(2 * time.Second):
			t.Fatalf("poll loop dead after %d fetches", i)
		}
	}
	if cur, ok := p.Current(); !ok || cur.Status != calls.StatusInProgress {
		t.Fatalf("expected live snapshot, got %+v ok=%v", cur, ok)
	}
}

func TestMakeCall_RejectsIncompleteBody(t *testing.T) {
	api := &fakeCallAPI{}
	r := router(Handlers{Calls: api})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/calls", strings.NewReader(`{"customer_number": "+1555"}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if len(api.made) != 0 {
		t.Fatalf("incomplete request must not reach the backend")
	}
}

func TestCurrentCall(t *testing.T) {
	tracker := &fakeTracker{}
	r := router(Handlers{Poller: tracker})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls/current", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d without a tracked call", w.Code)
	}

	tracker.current = &calls.Call{ProviderCallID: "vapi-9", Status: calls.StatusInProgress}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls/current", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["vapi_call_id"] != "vapi-9" {
		t.Fatalf("body = %v", got)
	}
}

func TestSearchTranscripts_FiltersNormalizedText(t *testing.T) {
	api := &fakeCallAPI{listing: []calls.Call{
		{
			ProviderCallID: "a",
			Transcript: transcript.Transcript{Turns: []transcript.Turn{
				{Role: "assistant", Message: "Hi, this is the screening call"},
				{Role: "user", Message: "Great, I am ready"},
			}},
		},
		{ProviderCallID: "b", Transcript: transcript.Transcript{Text: "plain text record"}},
		{ProviderCallID: "c"},
	}}
	r := router(Handlers{Calls: api})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/transcripts?q=screening", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got struct {
		Matches []transcriptMatch `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].CallID != "a" {
		t.Fatalf("matches = %+v", got.Matches)
	}
	if !strings.Contains(got.Matches[0].Transcript, "ASSISTANT: ") {
		t.Fatalf("expected normalized text, got %q", got.Matches[0].Transcript)
	}
}

func TestCreateScheduled_ValidationErrorRendersFieldMap(t *testing.T) {
	sched := &fakeScheduler{createErr: &schedule.ValidationError{Fields: map[string]string{
		"customer_number": "required",
		"timezone":        "required",
	}}}
	r := router(Handlers{Sched: sched})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/scheduled", strings.NewReader(`{}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Fields["customer_number"] != "required" {
		t.Fatalf("fields = %v", got.Fields)
	}
}

func TestCancelScheduled_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", schedule.ErrNotFound, http.StatusNotFound},
		{"not cancellable", schedule.ErrNotCancellable, http.StatusConflict},
		{"ok", nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := &fakeScheduler{cancelErr: tc.err}
			r := router(Handlers{Sched: sched})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/scheduled/sc-1", nil))
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestBackendErrors_MapToStatus(t *testing.T) {
	t.Run("app error keeps status", func(t *testing.T) {
		api := &fakeCallAPI{listErr: &backend.AppError{Status: http.StatusBadRequest, Message: "Vapi API key not configured"}}
		r := router(Handlers{Calls: api})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("unauthorized surfaces 401", func(t *testing.T) {
		api := &fakeCallAPI{listErr: &backend.TransportError{Op: "list calls", Status: http.StatusUnauthorized}}
		r := router(Handlers{Calls: api})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("network failure surfaces 502", func(t *testing.T) {
		api := &fakeCallAPI{listErr: &backend.TransportError{Op: "list calls", Err: errors.New("connection refused")}}
		r := router(Handlers{Calls: api})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls", nil))
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", w.Code)
		}
	})
}
