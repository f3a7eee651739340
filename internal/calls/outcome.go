package calls

import "strings"

// Outcome status values.
const (
	OutcomeAnswered      = "answered"
	OutcomeAnsweredBrief = "answered-brief"
	OutcomeVoicemail     = "voicemail"
	OutcomeNoAnswer      = "no-answer"
	OutcomeBusy          = "busy"
	OutcomeDeclined      = "declined"
	OutcomeFailed        = "failed"
	OutcomeInProgress    = "in-progress"
	OutcomeRinging       = "ringing"
	OutcomeCompleted     = "completed"
	OutcomeUnknown       = "unknown"
)

// voicemailIndicators are greeting phrases that mark an automated mailbox.
var voicemailIndicators = []string{
	"voicemail",
	"voice mail",
	"leave a message",
	"after the beep",
	"beep",
	"unavailable",
	"cannot take your call",
	"please record",
	"mailbox",
	"greeting",
	"automated message",
}

// Classify derives an outcome from the provider's view of a finished (or
// still running) call: status, end reason, duration, cost, and who actually
// spoke. The thresholds express how short real pickups, declines and
// voicemail drops tend to be.
func Classify(c Call) Outcome {
	endReason := strings.ToLower(c.EndReason)

	duration := c.DurationSeconds
	hasDuration := duration > 0
	if !hasDuration && !c.StartedAt.IsZero() && !c.EndedAt.IsZero() {
		duration = int(c.EndedAt.Sub(c.StartedAt).Seconds())
		hasDuration = true
	}

	switch c.Status {
	case StatusFailed:
		switch {
		case strings.Contains(endReason, "busy"):
			return Outcome{Status: OutcomeBusy, Description: "Phone was busy"}
		case strings.Contains(endReason, "no-answer") || strings.Contains(endReason, "timeout"):
			return Outcome{Status: OutcomeNoAnswer, Description: "No answer - call timed out"}
		case strings.Contains(endReason, "declined") || strings.Contains(endReason, "rejected"):
			return Outcome{Status: OutcomeDeclined, Description: "Call was declined"}
		default:
			reason := c.EndReason
			if reason == "" {
				reason = "Unknown reason"
			}
			return Outcome{Status: OutcomeFailed, Description: "Call failed - " + reason}
		}

	case StatusEnded:
		if turns := c.Transcript.Turns; len(turns) > 0 {
			hasUserSpeech := false
			var text strings.Builder
			for _, turn := range turns {
				msg := strings.ToLower(strings.TrimSpace(turn.Message))
				text.WriteString(turn.Role + ": " + msg + " ")
				if turn.Role == "user" && msg != "" {
					hasUserSpeech = true
				}
			}

			if !hasUserSpeech {
				if hasDuration && duration < 60 {
					return Outcome{Status: OutcomeVoicemail, Description: "Reached voicemail - message left by assistant"}
				}
				if containsAny(strings.ToLower(text.String()), voicemailIndicators) {
					return Outcome{Status: OutcomeVoicemail, Description: "Reached voicemail - automated greeting detected"}
				}
			} else {
				if hasDuration && duration > 30 {
					return Outcome{Status: OutcomeAnswered, Description: "Call was answered - conversation recorded"}
				}
				return Outcome{Status: OutcomeAnsweredBrief, Description: "Call answered but ended quickly"}
			}
		}

		if hasDuration {
			switch {
			case duration < 5:
				return Outcome{Status: OutcomeNoAnswer, Description: "Call ended immediately - likely not answered"}
			case duration < 15:
				if c.Cost > 0 {
					return Outcome{Status: OutcomeDeclined, Description: "Call was declined quickly"}
				}
				return Outcome{Status: OutcomeNoAnswer, Description: "Call not answered"}
			case duration < 45:
				if strings.Contains(endReason, "customer-ended-call") {
					return Outcome{Status: OutcomeAnsweredBrief, Description: "Call answered but customer hung up quickly"}
				}
				return Outcome{Status: OutcomeVoicemail, Description: "Likely reached voicemail"}
			default:
				return Outcome{Status: OutcomeAnswered, Description: "Call was answered"}
			}
		}

		switch {
		case c.Cost == 0:
			return Outcome{Status: OutcomeNoAnswer, Description: "No cost incurred - call not connected"}
		case c.Cost < 0.01:
			return Outcome{Status: OutcomeDeclined, Description: "Call declined - minimal cost"}
		case strings.Contains(endReason, "customer-ended-call"):
			return Outcome{Status: OutcomeAnswered, Description: "Call completed by customer"}
		default:
			return Outcome{Status: OutcomeVoicemail, Description: "Likely reached voicemail"}
		}

	case StatusQueued, StatusRinging:
		return Outcome{Status: OutcomeRinging, Description: "Call is ringing..."}

	case StatusInProgress:
		return Outcome{Status: OutcomeInProgress, Description: "Call is active"}

	default:
		return Outcome{Status: OutcomeUnknown, Description: "Unknown call status: " + string(c.Status)}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
