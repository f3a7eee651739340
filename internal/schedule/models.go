package schedule

import (
	"encoding/json"
	"time"

	"github.com/redsteadz/agentic-interviewer/internal/calls"
)

// Status is the backend executor's view of a scheduled call.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Cancellable reports whether the client may still request cancellation.
// The backend stays the source of truth; races with the executor surface
// as a rejected delete.
func (s Status) Cancellable() bool {
	return s == StatusScheduled
}

// ScheduledCall is a call queued for future execution. ScheduledAt is
// always a UTC instant; Timezone is kept only so the operator sees the
// wall-clock time they originally picked.
type ScheduledCall struct {
	ID             string
	CustomerNumber string
	PhoneNumberRef string
	AssistantRef   string
	CampaignRef    string

	ScheduledAt time.Time
	Timezone    string

	CallName string
	Notes    string

	Status       Status
	ErrorMessage string
}

// The backend serializer names record references by model field (assistant,
// phone_number, campaign) and never emits a timezone; the console's own JSON
// keeps the explicit provider-id keys. Decode accepts both shapes.
type scheduledCallWire struct {
	ID             calls.FlexID `json:"id"`
	CustomerNumber string       `json:"customer_number"`
	PhoneNumberRef string       `json:"twilio_phone_number_id,omitempty"`
	PhoneNumberPK  calls.FlexID `json:"phone_number,omitempty"`
	AssistantRef   string       `json:"vapi_assistant_id,omitempty"`
	AssistantPK    calls.FlexID `json:"assistant,omitempty"`
	CampaignRef    calls.FlexID `json:"campaign_id,omitempty"`
	CampaignPK     calls.FlexID `json:"campaign,omitempty"`

	ScheduledAt *time.Time `json:"scheduled_time"`
	Timezone    string     `json:"timezone"`

	CallName string `json:"call_name"`
	Notes    string `json:"notes"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s *ScheduledCall) UnmarshalJSON(b []byte) error {
	var w scheduledCallWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = ScheduledCall{
		ID:             string(w.ID),
		CustomerNumber: w.CustomerNumber,
		PhoneNumberRef: coalesce(w.PhoneNumberRef, string(w.PhoneNumberPK)),
		AssistantRef:   coalesce(w.AssistantRef, string(w.AssistantPK)),
		CampaignRef:    coalesce(string(w.CampaignRef), string(w.CampaignPK)),
		Timezone:       w.Timezone,
		CallName:       w.CallName,
		Notes:          w.Notes,
		Status:         Status(w.Status),
		ErrorMessage:   w.ErrorMessage,
	}
	if w.ScheduledAt != nil {
		s.ScheduledAt = w.ScheduledAt.UTC()
	}
	return nil
}

func (s ScheduledCall) MarshalJSON() ([]byte, error) {
	w := scheduledCallWire{
		ID:             calls.FlexID(s.ID),
		CustomerNumber: s.CustomerNumber,
		PhoneNumberRef: s.PhoneNumberRef,
		AssistantRef:   s.AssistantRef,
		CampaignRef:    calls.FlexID(s.CampaignRef),
		Timezone:       s.Timezone,
		CallName:       s.CallName,
		Notes:          s.Notes,
		Status:         string(s.Status),
		ErrorMessage:   s.ErrorMessage,
	}
	if !s.ScheduledAt.IsZero() {
		at := s.ScheduledAt.UTC()
		w.ScheduledAt = &at
	}
	return json.Marshal(w)
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Request is the creation payload sent to the backend. ScheduledTime is the
// normalized UTC instant, never the operator's naive local string.
type Request struct {
	CustomerNumber string    `json:"customer_number"`
	PhoneNumberRef string    `json:"twilio_phone_number_id"`
	AssistantRef   string    `json:"vapi_assistant_id"`
	ScheduledTime  time.Time `json:"scheduled_time"`
	Timezone       string    `json:"timezone"`
	CallName       string    `json:"call_name,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}
