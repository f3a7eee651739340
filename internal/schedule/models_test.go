package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScheduledCallUnmarshal_BackendShape(t *testing.T) {
	raw := `{
		"id": 7,
		"assistant": 2,
		"assistant_name": "Interviewer",
		"phone_number": 3,
		"phone_number_display": "+15550009999",
		"customer_number": "+15550002222",
		"scheduled_time": "2026-09-15T15:30:00Z",
		"status": "scheduled",
		"call_name": "Follow up",
		"campaign": 1,
		"error_message": ""
	}`

	var sc ScheduledCall
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sc.ID != "7" {
		t.Fatalf("id: %q", sc.ID)
	}
	if sc.AssistantRef != "2" || sc.PhoneNumberRef != "3" || sc.CampaignRef != "1" {
		t.Fatalf("refs: %q %q %q", sc.AssistantRef, sc.PhoneNumberRef, sc.CampaignRef)
	}
	if sc.Status != StatusScheduled {
		t.Fatalf("status: %s", sc.Status)
	}
	want := time.Date(2026, 9, 15, 15, 30, 0, 0, time.UTC)
	if !sc.ScheduledAt.Equal(want) {
		t.Fatalf("scheduled at: %v", sc.ScheduledAt)
	}
}

func TestScheduledCallJSON_RoundTrip(t *testing.T) {
	in := ScheduledCall{
		ID:             "sc-9",
		CustomerNumber: "+15550001111",
		PhoneNumberRef: "pn-1",
		AssistantRef:   "as-1",
		ScheduledAt:    time.Date(2026, 9, 15, 15, 30, 0, 0, time.UTC),
		Timezone:       "America/Chicago",
		Status:         StatusScheduled,
	}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out ScheduledCall
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.PhoneNumberRef != "pn-1" || out.AssistantRef != "as-1" {
		t.Fatalf("refs lost: %+v", out)
	}
	if out.Timezone != "America/Chicago" {
		t.Fatalf("timezone lost: %q", out.Timezone)
	}
	if !out.ScheduledAt.Equal(in.ScheduledAt) {
		t.Fatalf("instant: %v", out.ScheduledAt)
	}
}
