package deepdive

import (
	"context"
	"time"

	domai "github.com/profjobell/studio-sub000/internal/domain/ai"
	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

// Clock abstraction so tests can pin time.
type Clock interface {
	Now() time.Time
}

// Service runs the secondary deep-dive analysis for a stored report. The
// report's retained original content is re-analyzed under a narrower prompt
// intent; the result is returned to the caller and appended to the report.
type Service struct {
	Repo  domain.Repository
	Model domai.Client
	Clock Clock
	Log   *logger.Logger
}

// Output is the deep-dive result delivered to the caller. The same value is
// persisted onto the report; persistence failure does not invalidate it.
type Output struct {
	ReportID    domain.ReportID `json:"report_id"`
	Analysis    string          `json:"analysis"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Request runs a deep dive for the given report. Calling it twice produces
// two independent analyses; the second overwrites the persisted field.
func (s *Service) Request(ctx context.Context, id domain.ReportID) (*Output, error) {
	rep, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.OriginalContent == "" {
		return nil, domain.ErrMissingOriginalContent
	}

	out, err := s.Model.Analyze(ctx, rep.OriginalContent, domai.IntentDeepDive)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "analysis model", Err: err}
	}
	if out.DeepDive == "" {
		return nil, &domain.CollaboratorError{Collaborator: "analysis model", Err: domai.ErrEmptyResponse}
	}

	result := &Output{
		ReportID:    rep.ID,
		Analysis:    out.DeepDive,
		GeneratedAt: s.Clock.Now(),
	}

	// Persist after the result is secured for the caller. A store failure
	// here is logged, not returned: the analysis has already been produced.
	dd := domain.DeepDive{Analysis: result.Analysis, GeneratedAt: result.GeneratedAt}
	if err := s.Repo.SetDeepDive(ctx, id, dd); err != nil {
		s.Log.Error("persisting deep dive", "report_id", id, "error", err)
	}

	return result, nil
}
