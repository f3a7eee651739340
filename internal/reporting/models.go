package reporting

import "time"

// TimeRange bounds a summary by call creation time. A zero range means
// all time.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) zero() bool { return r.From.IsZero() && r.To.IsZero() }

func (r TimeRange) contains(t time.Time) bool {
	if r.zero() {
		return true
	}
	return !t.Before(r.From) && t.Before(r.To)
}

// CallsSummaryRequest requests aggregated interview-call metrics.
type CallsSummaryRequest struct {
	CampaignID string    `json:"campaign_id,omitempty"`
	Range      TimeRange `json:"range"`
}

type CallsSummary struct {
	CampaignID string `json:"campaign_id,omitempty"`

	TotalCalls      int `json:"total_calls"`
	AnsweredCalls   int `json:"answered_calls"`
	BriefCalls      int `json:"brief_calls"`
	VoicemailCalls  int `json:"voicemail_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	DeclinedCalls   int `json:"declined_calls"`
	FailedCalls     int `json:"failed_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	TotalCost float64 `json:"total_cost"`

	// AnswerRate is answered plus brief over total, 0 when no calls.
	AnswerRate float64 `json:"answer_rate"`
}
