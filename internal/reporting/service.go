package reporting

import (
	"context"
	"errors"

	"github.com/redsteadz/agentic-interviewer/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Source abstracts the call listing. The backend client satisfies it.
type Source interface {
	ListCalls(ctx context.Context, campaignID string) ([]calls.Call, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service { return &Service{source: source} }

// CallsSummary aggregates the listing into per-outcome counts. Calls without
// a stored outcome are classified on the fly, so live and historical records
// bucket the same way.
func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if !req.Range.zero() && !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.source == nil {
		return CallsSummary{}, errors.New("reporting: source not configured")
	}

	rows, err := s.source.ListCalls(ctx, req.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{CampaignID: req.CampaignID}
	for _, c := range rows {
		if !req.Range.contains(c.CreatedAt) {
			continue
		}
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.TotalCost += c.Cost

		outcome := c.Outcome
		if outcome == nil {
			classified := calls.Classify(c)
			outcome = &classified
		}
		switch outcome.Status {
		case calls.OutcomeAnswered, calls.OutcomeCompleted:
			out.AnsweredCalls++
		case calls.OutcomeAnsweredBrief:
			out.BriefCalls++
		case calls.OutcomeVoicemail:
			out.VoicemailCalls++
		case calls.OutcomeNoAnswer:
			out.NoAnswerCalls++
		case calls.OutcomeBusy:
			out.BusyCalls++
		case calls.OutcomeDeclined:
			out.DeclinedCalls++
		case calls.OutcomeFailed:
			out.FailedCalls++
		case calls.OutcomeInProgress, calls.OutcomeRinging:
			out.InProgressCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.AnswerRate = float64(out.AnsweredCalls+out.BriefCalls) / float64(out.TotalCalls)
	}
	return out, nil
}
