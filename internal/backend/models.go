package backend

import (
	"time"

	"github.com/redsteadz/agentic-interviewer/internal/calls"
)

// ConfigStatus reports which provider credentials the operator has stored.
// Secrets never travel back; the booleans say whether one is set.
type ConfigStatus struct {
	TwilioConfigured bool   `json:"twilio_configured"`
	VapiConfigured   bool   `json:"vapi_configured"`
	OpenAIConfigured bool   `json:"openai_configured"`
	TwilioAccountSID string `json:"twilio_account_sid"`
	VapiKeySet       bool   `json:"vapi_api_key_set"`
	OpenAIKeySet     bool   `json:"openai_api_key_set"`
}

// ConfigUpdate carries new provider credentials. Empty fields are left alone
// by the collaborator.
type ConfigUpdate struct {
	TwilioAccountSID string `json:"twilio_account_sid,omitempty"`
	TwilioAuthToken  string `json:"twilio_auth_token,omitempty"`
	VapiAPIKey       string `json:"vapi_api_key,omitempty"`
	OpenAIAPIKey     string `json:"openai_api_key,omitempty"`
}

type Assistant struct {
	ID           calls.FlexID `json:"id"`
	Name         string       `json:"name"`
	ProviderID   string       `json:"vapi_assistant_id"`
	FirstMessage string       `json:"first_message"`
	VoiceProv    string       `json:"voice_provider"`
	VoiceID      string       `json:"voice_id"`
	ModelProv    string       `json:"model_provider"`
	Model        string       `json:"model"`
	CampaignRef  calls.FlexID `json:"campaign"`
	CampaignName string       `json:"campaign_name"`
	CreatedAt    *time.Time   `json:"created_at"`
}

// CreateAssistantRequest mirrors the collaborator's creation payload.
// Zero-valued fields fall back to its defaults.
type CreateAssistantRequest struct {
	Name          string `json:"name,omitempty"`
	FirstMessage  string `json:"first_message,omitempty"`
	VoiceProvider string `json:"voice_provider,omitempty"`
	VoiceID       string `json:"voice_id,omitempty"`
	ModelProvider string `json:"model_provider,omitempty"`
	Model         string `json:"model,omitempty"`
	KnowledgeText string `json:"knowledge_text,omitempty"`
	KnowledgeURLs string `json:"knowledge_urls,omitempty"`
	CampaignID    int64  `json:"campaign_id,omitempty"`
}

// PhoneNumber is a number registered with the voice provider and usable as
// an outbound caller id.
type PhoneNumber struct {
	ID           calls.FlexID `json:"id"`
	Number       string       `json:"phone_number"`
	ProviderID   string       `json:"vapi_phone_number_id"`
	TwilioSID    string       `json:"twilio_sid"`
	FriendlyName string       `json:"friendly_name"`
	Active       bool         `json:"is_active"`
	CampaignRef  calls.FlexID `json:"campaign"`
	CampaignName string       `json:"campaign_name"`
}

// TwilioNumber is a number owned in the Twilio account, not necessarily
// registered with the voice provider yet.
type TwilioNumber struct {
	Number       string `json:"phone_number"`
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
}

type MakeCallRequest struct {
	CustomerNumber string `json:"customer_number"`
	PhoneNumberRef string `json:"twilio_phone_number_id"`
	AssistantRef   string `json:"vapi_assistant_id"`
	CampaignID     int64  `json:"campaign_id,omitempty"`
}
