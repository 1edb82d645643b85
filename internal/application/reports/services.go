package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	domai "github.com/profjobell/studio-sub000/internal/domain/ai"
	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

// Clock abstraction so tests can pin time.
type Clock interface {
	Now() time.Time
}

// Service implements the primary analysis use-cases: submit content for
// doctrinal analysis, then retrieve, list and delete the stored reports.
// Safe for concurrent use.
type Service struct {
	Repo     domain.Repository
	Teaching domain.TeachingRepository
	Model    domai.Client
	Clock    Clock
	Log      *logger.Logger
}

// Command to submit raw content for analysis.
type SubmitCommand struct {
	Title        string
	Content      string
	AnalysisType string
}

// Command to submit a teaching/letter analysis.
type SubmitTeachingCommand struct {
	Title        string
	Content      string
	Recipient    string
	Tone         string
	OutputFormat string
}

// Submit creates a report in processing, invokes the model, and persists the
// terminal transition. The raw content is retained verbatim on the report so
// later deep-dive requests do not require re-submission. A model failure is
// persisted on the record and also returned to the caller.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.AnalysisReport, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, domain.Validationf("content", "must not be empty")
	}
	at := domain.AnalysisType(cmd.AnalysisType)
	if at == "" {
		at = domain.TypeText
	}

	now := s.Clock.Now()
	rep := &domain.AnalysisReport{
		ID:              domain.ReportID(uuid.New().String()),
		Title:           titleOr(cmd.Title, cmd.Content),
		AnalysisType:    at,
		Status:          domain.StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
		OriginalContent: cmd.Content,
	}
	if err := s.Repo.Save(ctx, rep); err != nil {
		return nil, err
	}

	out, err := s.Model.Analyze(ctx, cmd.Content, domai.IntentPrimary)
	if err != nil {
		return s.failAnalysis(ctx, rep, err)
	}
	if out.Analysis == nil {
		return s.failAnalysis(ctx, rep, domai.ErrEmptyResponse)
	}

	rep.Status = domain.StatusCompleted
	rep.AnalysisResult = out.Analysis
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, rep); err != nil {
		return nil, err
	}
	s.Log.Info("analysis completed", "report_id", rep.ID, "type", rep.AnalysisType)
	return rep, nil
}

func (s *Service) failAnalysis(ctx context.Context, rep *domain.AnalysisReport, cause error) (*domain.AnalysisReport, error) {
	rep.Status = domain.StatusFailed
	rep.AnalysisResult = nil
	rep.FailureReason = cause.Error()
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, rep); err != nil {
		s.Log.Error("persisting failed analysis", "report_id", rep.ID, "error", err)
	}
	return rep, &domain.CollaboratorError{Collaborator: "analysis model", Err: cause}
}

// SubmitTeaching runs the sectioned teaching analysis through the same
// lifecycle as Submit, on the teaching aggregate.
func (s *Service) SubmitTeaching(ctx context.Context, cmd SubmitTeachingCommand) (*domain.TeachingAnalysisReport, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, domain.Validationf("content", "must not be empty")
	}

	now := s.Clock.Now()
	rep := &domain.TeachingAnalysisReport{
		ID:              domain.ReportID(uuid.New().String()),
		Title:           titleOr(cmd.Title, cmd.Content),
		Recipient:       cmd.Recipient,
		Tone:            cmd.Tone,
		OutputFormat:    cmd.OutputFormat,
		Status:          domain.StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
		OriginalContent: cmd.Content,
	}
	if err := s.Teaching.SaveTeaching(ctx, rep); err != nil {
		return nil, err
	}

	out, err := s.Model.Analyze(ctx, cmd.Content, domai.IntentTeaching)
	if err == nil && out.Teaching == nil {
		err = domai.ErrEmptyResponse
	}
	if err != nil {
		rep.Status = domain.StatusFailed
		rep.FailureReason = err.Error()
		rep.UpdatedAt = s.Clock.Now()
		if serr := s.Teaching.SaveTeaching(ctx, rep); serr != nil {
			s.Log.Error("persisting failed teaching analysis", "report_id", rep.ID, "error", serr)
		}
		return rep, &domain.CollaboratorError{Collaborator: "analysis model", Err: err}
	}

	rep.Status = domain.StatusCompleted
	rep.Result = out.Teaching
	rep.UpdatedAt = s.Clock.Now()
	if err := s.Teaching.SaveTeaching(ctx, rep); err != nil {
		return nil, err
	}
	s.Log.Info("teaching analysis completed", "report_id", rep.ID, "recipient", rep.Recipient)
	return rep, nil
}

// Get fetches one analysis report by id.
func (s *Service) Get(ctx context.Context, id domain.ReportID) (*domain.AnalysisReport, error) {
	return s.Repo.Get(ctx, id)
}

// Latest lists the most recent reports, newest createdAt first.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.AnalysisReport, error) {
	return s.Repo.Latest(ctx, limit)
}

// Delete removes a report and any sub-records it owns.
func (s *Service) Delete(ctx context.Context, id domain.ReportID) error {
	return s.Repo.Delete(ctx, id)
}

// GetTeaching fetches one teaching report by id.
func (s *Service) GetTeaching(ctx context.Context, id domain.ReportID) (*domain.TeachingAnalysisReport, error) {
	return s.Teaching.GetTeaching(ctx, id)
}

// LatestTeaching lists teaching reports, newest createdAt first.
func (s *Service) LatestTeaching(ctx context.Context, limit int) ([]*domain.TeachingAnalysisReport, error) {
	return s.Teaching.LatestTeaching(ctx, limit)
}

// DeleteTeaching removes a teaching report together with its podcast record.
func (s *Service) DeleteTeaching(ctx context.Context, id domain.ReportID) error {
	return s.Teaching.DeleteTeaching(ctx, id)
}

// titleOr falls back to a trimmed content prefix when no title was given.
func titleOr(title, content string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	content = strings.TrimSpace(content)
	if len(content) > 60 {
		return content[:60]
	}
	return content
}
