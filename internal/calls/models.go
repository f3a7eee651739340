package calls

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redsteadz/agentic-interviewer/internal/transcript"
)

// Status is the provider-reported lifecycle phase of a call.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusEnded      Status = "ended"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// ParseStatus maps a provider status string onto the known set.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusQueued, StatusRinging, StatusInProgress, StatusEnded, StatusFailed:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// Live reports whether the call is still worth polling.
func (s Status) Live() bool {
	switch s {
	case StatusQueued, StatusRinging, StatusInProgress:
		return true
	default:
		return false
	}
}

// Terminal reports whether the call has reached a final state.
// Terminal records are immutable; no further fetches are issued for them.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// Outcome is the classified result of a finished call.
type Outcome struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// Call is the local record of one provider call. It is created when a call
// is initiated or first observed via listing and replaced wholesale by each
// poll response.
type Call struct {
	ID             string
	ProviderCallID string
	CustomerNumber string
	AssistantName  string
	CampaignName   string

	Status  Status
	Outcome *Outcome

	Cost            float64
	CostBreakdown   map[string]float64
	DurationSeconds int
	EndReason       string

	Transcript transcript.Transcript

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

// FlexID accepts both JSON strings (provider ids) and numbers (backend
// row ids) and carries them as strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// callWire tolerates both the backend's snake_case listing shape and the
// provider's camelCase single-call shape in one payload.
type callWire struct {
	ID             FlexID `json:"id"`
	ProviderCallID string `json:"vapi_call_id"`

	Customer       string `json:"customer"`
	CustomerNumber string `json:"customer_number"`
	AssistantName  string `json:"assistant_name"`
	CampaignName   string `json:"campaign_name"`

	Status string `json:"status"`

	Outcome            *Outcome `json:"outcome"`
	OutcomeStatus      string   `json:"outcome_status"`
	OutcomeDescription string   `json:"outcome_description"`

	Cost               float64            `json:"cost"`
	CostBreakdownSnake map[string]float64 `json:"cost_breakdown"`
	CostBreakdownCamel map[string]float64 `json:"costBreakdown"`

	DurationSeconds *float64 `json:"duration_seconds"`

	EndReasonSnake string `json:"end_reason"`
	EndReasonCamel string `json:"endReason"`

	Transcript transcript.Transcript `json:"transcript"`

	CreatedAtSnake *time.Time `json:"created_at"`
	CreatedAtCamel *time.Time `json:"createdAt"`
	StartedAtSnake *time.Time `json:"started_at"`
	StartedAtCamel *time.Time `json:"startedAt"`
	EndedAtSnake   *time.Time `json:"ended_at"`
	EndedAtCamel   *time.Time `json:"endedAt"`
}

func (c *Call) UnmarshalJSON(b []byte) error {
	var w callWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*c = Call{
		ID:             string(w.ID),
		ProviderCallID: coalesce(w.ProviderCallID, string(w.ID)),
		CustomerNumber: coalesce(w.CustomerNumber, w.Customer),
		AssistantName:  w.AssistantName,
		CampaignName:   w.CampaignName,
		Status:         ParseStatus(w.Status),
		Outcome:        w.Outcome,
		Cost:           w.Cost,
		CostBreakdown:  w.CostBreakdownSnake,
		EndReason:      coalesce(w.EndReasonSnake, w.EndReasonCamel),
		Transcript:     w.Transcript,
		CreatedAt:      coalesceTime(w.CreatedAtSnake, w.CreatedAtCamel),
		StartedAt:      coalesceTime(w.StartedAtSnake, w.StartedAtCamel),
		EndedAt:        coalesceTime(w.EndedAtSnake, w.EndedAtCamel),
	}
	if c.CostBreakdown == nil {
		c.CostBreakdown = w.CostBreakdownCamel
	}
	if c.Outcome == nil && w.OutcomeStatus != "" {
		c.Outcome = &Outcome{Status: w.OutcomeStatus, Description: w.OutcomeDescription}
	}
	if w.DurationSeconds != nil {
		c.DurationSeconds = int(*w.DurationSeconds)
	} else if !c.StartedAt.IsZero() && !c.EndedAt.IsZero() {
		c.DurationSeconds = int(c.EndedAt.Sub(c.StartedAt).Seconds())
	}
	return nil
}

func (c Call) MarshalJSON() ([]byte, error) {
	dur := float64(c.DurationSeconds)
	w := callWire{
		ID:                 FlexID(c.ID),
		ProviderCallID:     c.ProviderCallID,
		CustomerNumber:     c.CustomerNumber,
		AssistantName:      c.AssistantName,
		CampaignName:       c.CampaignName,
		Status:             string(c.Status),
		Outcome:            c.Outcome,
		Cost:               c.Cost,
		CostBreakdownSnake: c.CostBreakdown,
		DurationSeconds:    &dur,
		EndReasonSnake:     c.EndReason,
		Transcript:         c.Transcript,
	}
	if !c.CreatedAt.IsZero() {
		w.CreatedAtSnake = &c.CreatedAt
	}
	if !c.StartedAt.IsZero() {
		w.StartedAtSnake = &c.StartedAt
	}
	if !c.EndedAt.IsZero() {
		w.EndedAtSnake = &c.EndedAt
	}
	return json.Marshal(w)
}

// DurationFormatted renders the duration as M:SS for call summaries.
func (c Call) DurationFormatted() string {
	if c.DurationSeconds <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d:%02d", c.DurationSeconds/60, c.DurationSeconds%60)
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesceTime(vals ...*time.Time) time.Time {
	for _, v := range vals {
		if v != nil && !v.IsZero() {
			return *v
		}
	}
	return time.Time{}
}
