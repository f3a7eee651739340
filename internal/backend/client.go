// Package backend is the typed client for the interview collaborator's REST
// API. JSON wire shapes are resolved at this boundary; callers see domain
// types and typed errors only.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/redsteadz/agentic-interviewer/internal/calls"
	"github.com/redsteadz/agentic-interviewer/internal/schedule"
)

const maxBodyBytes = 4 << 20

type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client rooted at baseURL (the /api root, no trailing
// slash needed). hc carries the session transport; nil means
// http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) GetConfig(ctx context.Context) (ConfigStatus, error) {
	var out ConfigStatus
	err := c.do(ctx, "get config", http.MethodGet, "/config/", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateConfig(ctx context.Context, upd ConfigUpdate) error {
	var out struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	if err := c.do(ctx, "update config", http.MethodPost, "/config/", nil, upd, &out); err != nil {
		return err
	}
	if !out.Success {
		return &AppError{Status: http.StatusOK, Message: strings.Join(out.Errors, "; ")}
	}
	return nil
}

func (c *Client) ClearConfig(ctx context.Context) error {
	return c.do(ctx, "clear config", http.MethodPost, "/clear-config/", nil, struct{}{}, nil)
}

func (c *Client) CreateAssistant(ctx context.Context, req CreateAssistantRequest) (Assistant, error) {
	var out struct {
		Assistant Assistant `json:"assistant"`
	}
	err := c.do(ctx, "create assistant", http.MethodPost, "/create-assistant/", nil, req, &out)
	return out.Assistant, err
}

func (c *Client) ListAssistants(ctx context.Context) ([]Assistant, error) {
	var out []Assistant
	err := c.do(ctx, "list assistants", http.MethodGet, "/assistants/", nil, nil, &out)
	return out, err
}

func (c *Client) ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var out struct {
		Numbers []PhoneNumber `json:"phone_numbers"`
	}
	err := c.do(ctx, "list phone numbers", http.MethodGet, "/phone-numbers/", nil, nil, &out)
	return out.Numbers, err
}

func (c *Client) ListTwilioNumbers(ctx context.Context) ([]TwilioNumber, error) {
	var out struct {
		Numbers []TwilioNumber `json:"twilio_numbers"`
	}
	err := c.do(ctx, "list twilio numbers", http.MethodGet, "/twilio-numbers/", nil, nil, &out)
	return out.Numbers, err
}

func (c *Client) RegisterPhoneNumber(ctx context.Context, number string, campaignID int64) (PhoneNumber, error) {
	payload := struct {
		PhoneNumber string `json:"phone_number"`
		CampaignID  int64  `json:"campaign_id,omitempty"`
	}{number, campaignID}
	var out struct {
		Number PhoneNumber `json:"phone_number"`
	}
	err := c.do(ctx, "register phone number", http.MethodPost, "/register-phone-number/", nil, payload, &out)
	return out.Number, err
}

func (c *Client) MakeCall(ctx context.Context, req MakeCallRequest) (calls.Call, error) {
	var out struct {
		Call calls.Call `json:"call"`
	}
	err := c.do(ctx, "make call", http.MethodPost, "/make-call/", nil, req, &out)
	return out.Call, err
}

// GetCall fetches the provider's current view of one call. The poller
// depends on this method.
func (c *Client) GetCall(ctx context.Context, providerCallID string) (calls.Call, error) {
	var out struct {
		Call calls.Call `json:"call"`
	}
	err := c.do(ctx, "get call", http.MethodGet, "/call/"+url.PathEscape(providerCallID)+"/", nil, nil, &out)
	return out.Call, err
}

func (c *Client) ListCalls(ctx context.Context, campaignID string) ([]calls.Call, error) {
	var out []calls.Call
	err := c.do(ctx, "list calls", http.MethodGet, "/calls/", campaignQuery(campaignID), nil, &out)
	return out, err
}

func (c *Client) ScheduleCall(ctx context.Context, req schedule.Request) (schedule.ScheduledCall, error) {
	var out struct {
		Scheduled schedule.ScheduledCall `json:"scheduled_call"`
	}
	err := c.do(ctx, "schedule call", http.MethodPost, "/schedule-call/", nil, req, &out)
	return out.Scheduled, err
}

func (c *Client) ListScheduledCalls(ctx context.Context, campaignID string) ([]schedule.ScheduledCall, error) {
	var out []schedule.ScheduledCall
	err := c.do(ctx, "list scheduled calls", http.MethodGet, "/scheduled-calls/", campaignQuery(campaignID), nil, &out)
	return out, err
}

func (c *Client) CancelScheduledCall(ctx context.Context, id string) error {
	return c.do(ctx, "cancel scheduled call", http.MethodDelete, "/scheduled-call/"+url.PathEscape(id)+"/", nil, nil, nil)
}

// UpdateScheduledCall flips a scheduled call's status. The collaborator only
// accepts "cancelled"; anything else comes back as an AppError.
func (c *Client) UpdateScheduledCall(ctx context.Context, id string, status schedule.Status) (schedule.ScheduledCall, error) {
	payload := struct {
		Status string `json:"status"`
	}{string(status)}
	var out schedule.ScheduledCall
	err := c.do(ctx, "update scheduled call", http.MethodPatch, "/scheduled-call/"+url.PathEscape(id)+"/", nil, payload, &out)
	return out, err
}

func campaignQuery(campaignID string) url.Values {
	if campaignID == "" {
		return nil
	}
	return url.Values{"campaign_id": []string{campaignID}}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// failure turns a non-2xx body into the richest error the payload supports:
// the {"error": ...} envelope, a DRF field-error map, or a bare status.
func failure(op string, status int, raw []byte) error {
	var env struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return &AppError{Status: status, Message: env.Error}
		}
		if env.Detail != "" {
			return &AppError{Status: status, Message: env.Detail}
		}
	}

	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(fields[k], ", "))
		}
		return &AppError{Status: status, Message: strings.Join(parts, "; ")}
	}

	return &TransportError{Op: op, Status: status}
}
