package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redsteadz/agentic-interviewer/internal/auth"
	"github.com/redsteadz/agentic-interviewer/internal/backend"
	"github.com/redsteadz/agentic-interviewer/internal/calls"
	"github.com/redsteadz/agentic-interviewer/internal/reporting"
	"github.com/redsteadz/agentic-interviewer/internal/schedule"
	"github.com/redsteadz/agentic-interviewer/pkg/logger"
)

// CallAPI is the slice of the backend client the handlers need.
type CallAPI interface {
	MakeCall(ctx context.Context, req backend.MakeCallRequest) (calls.Call, error)
	GetCall(ctx context.Context, providerCallID string) (calls.Call, error)
	ListCalls(ctx context.Context, campaignID string) ([]calls.Call, error)
}

// Tracker is the live-call side: the poller.
type Tracker interface {
	Track(ctx context.Context, c calls.Call)
	Current() (calls.Call, bool)
}

// Scheduler is the reconciler surface exposed over HTTP.
type Scheduler interface {
	Create(ctx context.Context, form schedule.Form) (schedule.ScheduledCall, error)
	List(ctx context.Context, campaignID string) ([]schedule.ScheduledCall, error)
	Cancel(ctx context.Context, id string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls   CallAPI
	Poller  Tracker
	Sched   Scheduler
	Reports *reporting.Service

	// Base is the server's lifetime context. Poll loops started from a
	// request must run under it; the request context is cancelled as soon
	// as the response is written.
	Base context.Context
}

func (h Handlers) baseContext() context.Context {
	if h.Base != nil {
		return h.Base
	}
	return context.Background()
}

type makeCallRequest struct {
	CustomerNumber string `json:"customer_number"`
	PhoneNumberRef string `json:"twilio_phone_number_id"`
	AssistantRef   string `json:"vapi_assistant_id"`
}

func (h Handlers) MakeCall(c *gin.Context) {
	var req makeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CustomerNumber == "" || req.PhoneNumberRef == "" || req.AssistantRef == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "customer_number, twilio_phone_number_id, vapi_assistant_id required"})
		return
	}

	call, err := h.Calls.MakeCall(c.Request.Context(), backend.MakeCallRequest{
		CustomerNumber: req.CustomerNumber,
		PhoneNumberRef: req.PhoneNumberRef,
		AssistantRef:   req.AssistantRef,
	})
	if err != nil {
		abortWithBackendError(c, err)
		return
	}
	if h.Poller != nil {
		h.Poller.Track(h.baseContext(), call)
	}
	c.JSON(http.StatusCreated, call)
}

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.GetCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) ListCalls(c *gin.Context) {
	list, err := h.Calls.ListCalls(c.Request.Context(), c.Query("campaign_id"))
	if err != nil {
		abortWithBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list})
}

// CurrentCall returns the poller's latest snapshot of the tracked call.
func (h Handlers) CurrentCall(c *gin.Context) {
	if h.Poller == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no tracked call"})
		return
	}
	call, ok := h.Poller.Current()
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no tracked call"})
		return
	}
	c.JSON(http.StatusOK, call)
}

type transcriptMatch struct {
	CallID         string `json:"call_id"`
	CustomerNumber string `json:"customer_number"`
	Transcript     string `json:"transcript"`
}

// SearchTranscripts filters the listing by normalized transcript text.
// An empty q matches every call; missing transcripts render the sentinel.
func (h Handlers) SearchTranscripts(c *gin.Context) {
	q := c.Query("q")
	list, err := h.Calls.ListCalls(c.Request.Context(), c.Query("campaign_id"))
	if err != nil {
		abortWithBackendError(c, err)
		return
	}

	matches := make([]transcriptMatch, 0)
	for _, call := range list {
		if !call.Transcript.Matches(q) {
			continue
		}
		matches = append(matches, transcriptMatch{
			CallID:         call.ProviderCallID,
			CustomerNumber: call.CustomerNumber,
			Transcript:     call.Transcript.Normalize(),
		})
	}
	logger.FromGin(c).Debug("transcript search", "query", q, "scanned", len(list), "matched", len(matches))
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h Handlers) ListScheduled(c *gin.Context) {
	list, err := h.Sched.List(c.Request.Context(), c.Query("campaign_id"))
	if err != nil {
		abortWithBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled_calls": list})
}

type scheduleRequest struct {
	CustomerNumber string `json:"customer_number"`
	PhoneNumberRef string `json:"twilio_phone_number_id"`
	AssistantRef   string `json:"vapi_assistant_id"`
	ScheduledTime  string `json:"scheduled_time"`
	Timezone       string `json:"timezone"`
	CallName       string `json:"call_name"`
	Notes          string `json:"notes"`
}

func (h Handlers) CreateScheduled(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	created, err := h.Sched.Create(c.Request.Context(), schedule.Form{
		CustomerNumber: req.CustomerNumber,
		PhoneNumberRef: req.PhoneNumberRef,
		AssistantRef:   req.AssistantRef,
		LocalTime:      req.ScheduledTime,
		Timezone:       req.Timezone,
		CallName:       req.CallName,
		Notes:          req.Notes,
	})
	if err != nil {
		var verr *schedule.ValidationError
		switch {
		case errors.As(err, &verr):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
		case errors.Is(err, schedule.ErrInvalidTimezone), errors.Is(err, schedule.ErrTimeInPast):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			abortWithBackendError(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) CancelScheduled(c *gin.Context) {
	err := h.Sched.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, schedule.ErrNotCancellable):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			abortWithBackendError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) CallStats(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	summary, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		CampaignID: c.Query("campaign_id"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		abortWithBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// abortWithBackendError translates client errors into the console's JSON
// error shape. An expired session surfaces as 401 so the operator knows to
// log in again.
func abortWithBackendError(c *gin.Context, err error) {
	var app *backend.AppError
	if errors.As(err, &app) {
		status := app.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, gin.H{"error": app.Message})
		return
	}

	var te *backend.TransportError
	if errors.As(err, &te) {
		if te.Status == http.StatusUnauthorized {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, log in again"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		return
	}

	if errors.Is(err, auth.ErrSessionExpired) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, log in again"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
