// Package transcript resolves the provider's heterogeneous transcript
// encodings into one canonical text form. The provider returns either a
// plain string, an ordered list of speaker turns, or nothing at all;
// that shape is resolved exactly once here, at the wire boundary.
package transcript

import (
	"encoding/json"
	"strings"
)

// NotAvailable is returned for absent or empty transcripts. It is a real
// marker, distinguishable from an empty transcript string.
const NotAvailable = "Transcript not available"

// Turn is a single utterance in an ordered conversation.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Transcript is the tagged variant of the provider's transcript field.
// At most one of Text/Turns is set.
type Transcript struct {
	Text  string
	Turns []Turn
}

// UnmarshalJSON accepts the three shapes observed from the provider:
// a JSON string, an ordered turn list, or null.
func (t *Transcript) UnmarshalJSON(b []byte) error {
	*t = Transcript{}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(b, &t.Turns)
	}
	return json.Unmarshal(b, &t.Text)
}

// MarshalJSON writes back whichever shape the transcript carries.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.Turns != nil {
		return json.Marshal(t.Turns)
	}
	return json.Marshal(t.Text)
}

// Empty reports whether there is nothing to show.
func (t Transcript) Empty() bool {
	if len(t.Turns) > 0 {
		return false
	}
	return strings.TrimSpace(t.Text) == ""
}

// Normalize produces the canonical human-readable form:
//   - a plain string is returned verbatim
//   - turns render as "<ROLE>: <message>" separated by blank lines,
//     in original order, never deduplicated
//   - an absent or empty transcript yields NotAvailable
func (t Transcript) Normalize() string {
	if len(t.Turns) > 0 {
		lines := make([]string, 0, len(t.Turns))
		for _, turn := range t.Turns {
			lines = append(lines, strings.ToUpper(turn.Role)+": "+turn.Message)
		}
		return strings.Join(lines, "\n\n")
	}
	if strings.TrimSpace(t.Text) == "" {
		return NotAvailable
	}
	return t.Text
}

// Matches reports whether the normalized text contains query,
// case-insensitively. Search always runs over the normalized form so the
// wire shape cannot change what an operator finds.
func (t Transcript) Matches(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	if t.Empty() {
		return false
	}
	return strings.Contains(strings.ToLower(t.Normalize()), strings.ToLower(q))
}
