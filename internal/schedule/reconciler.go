package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("schedule: scheduled call not found")

	// ErrNotCancellable means the call already left the scheduled state
	// locally; the backend is never asked.
	ErrNotCancellable = errors.New("schedule: call is no longer cancellable")
)

// ValidationError carries field-level problems with a schedule form.
// It is produced entirely client-side and never sent to the backend.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "schedule: invalid form (" + strings.Join(parts, "; ") + ")"
}

// Form is the operator's raw schedule input before normalization.
type Form struct {
	CustomerNumber string
	PhoneNumberRef string
	AssistantRef   string
	LocalTime      string // naive wall-clock, e.g. 2026-09-01T14:30
	Timezone       string // IANA zone name
	CallName       string
	Notes          string
}

// Backend is the scheduled-call surface of the interview backend.
type Backend interface {
	ScheduleCall(ctx context.Context, req Request) (ScheduledCall, error)
	ListScheduledCalls(ctx context.Context, campaignID string) ([]ScheduledCall, error)
	CancelScheduledCall(ctx context.Context, id string) error
}

// Reconciler keeps a local listing of scheduled calls consistent with the
// backend. Listing is always a full overwrite, never an incremental merge,
// so externally executed calls cannot leave the local view drifting.
type Reconciler struct {
	backend Backend
	clock   func() time.Time

	mu    sync.Mutex
	items []ScheduledCall
}

func NewReconciler(b Backend) *Reconciler {
	return &Reconciler{backend: b, clock: time.Now}
}

// Create validates the form, normalizes the scheduled time to UTC and
// submits it. The local listing grows only after the backend confirms.
func (r *Reconciler) Create(ctx context.Context, form Form) (ScheduledCall, error) {
	fields := map[string]string{}
	if strings.TrimSpace(form.CustomerNumber) == "" {
		fields["customer_number"] = "required"
	}
	if strings.TrimSpace(form.PhoneNumberRef) == "" {
		fields["twilio_phone_number_id"] = "required"
	}
	if strings.TrimSpace(form.AssistantRef) == "" {
		fields["vapi_assistant_id"] = "required"
	}
	if strings.TrimSpace(form.LocalTime) == "" {
		fields["scheduled_time"] = "required"
	}
	if strings.TrimSpace(form.Timezone) == "" {
		fields["timezone"] = "required"
	}
	if len(fields) > 0 {
		return ScheduledCall{}, &ValidationError{Fields: fields}
	}

	instant, err := ToUTC(form.LocalTime, form.Timezone)
	if err != nil {
		return ScheduledCall{}, err
	}
	if err := ValidateFuture(instant, r.clock()); err != nil {
		return ScheduledCall{}, err
	}

	created, err := r.backend.ScheduleCall(ctx, Request{
		CustomerNumber: form.CustomerNumber,
		PhoneNumberRef: form.PhoneNumberRef,
		AssistantRef:   form.AssistantRef,
		ScheduledTime:  instant,
		Timezone:       form.Timezone,
		CallName:       form.CallName,
		Notes:          form.Notes,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return ScheduledCall{}, err
	}
	// The backend stores only the UTC instant; keep the operator's chosen
	// zone so the listing can render the wall-clock time they picked.
	if created.Timezone == "" {
		created.Timezone = form.Timezone
	}

	r.mu.Lock()
	r.items = append(r.items, created)
	r.mu.Unlock()
	return created, nil
}

// List fetches the backend's listing and replaces the local one wholesale.
func (r *Reconciler) List(ctx context.Context, campaignID string) ([]ScheduledCall, error) {
	items, err := r.backend.ListScheduledCalls(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return append([]ScheduledCall(nil), items...), nil
}

// Cancel deletes a scheduled call that is still locally cancellable. A
// backend rejection (the executor may have picked the call up already) is
// surfaced to the caller, never swallowed.
func (r *Reconciler) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	idx := -1
	for i, it := range r.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !r.items[idx].Status.Cancellable() {
		status := r.items[idx].Status
		r.mu.Unlock()
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, status)
	}
	r.mu.Unlock()

	if err := r.backend.CancelScheduledCall(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	for i, it := range r.items {
		if it.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current local listing.
func (r *Reconciler) Snapshot() []ScheduledCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ScheduledCall(nil), r.items...)
}
