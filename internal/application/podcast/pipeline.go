package podcast

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

// Clock abstraction so tests can pin time.
type Clock interface {
	Now() time.Time
}

// Pipeline drives a teaching report's podcast artifact through the generate
// and export stages. Each stage persists its status transition before and
// after the external call, so a client that disconnects mid-operation can
// poll the report and recover the true state instead of re-triggering a
// duplicate side effect.
//
// Both stages are single-flight per report id: the in-memory guard rejects a
// second invocation while one is running, on top of the status eligibility
// check. The guard is advisory and process-local; a multi-process deployment
// needs a store with atomic compare-and-set on status instead.
type Pipeline struct {
	Repo      domain.TeachingRepository
	Synth     domain.Synthesizer
	Exporters map[domain.ExportTarget]domain.Exporter
	Clock     Clock
	Log       *logger.Logger

	mu       sync.Mutex
	inflight map[domain.ReportID]struct{}
}

// NewPipeline wires a pipeline with an empty in-flight set.
func NewPipeline(repo domain.TeachingRepository, synth domain.Synthesizer, exporters map[domain.ExportTarget]domain.Exporter, clock Clock, log *logger.Logger) *Pipeline {
	return &Pipeline{
		Repo:      repo,
		Synth:     synth,
		Exporters: exporters,
		Clock:     clock,
		Log:       log,
		inflight:  make(map[domain.ReportID]struct{}),
	}
}

func (p *Pipeline) acquire(id domain.ReportID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == nil {
		p.inflight = make(map[domain.ReportID]struct{})
	}
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id domain.ReportID) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

// Generate synthesizes the audio artifact for the requested content scope.
// Precondition violations are rejected before any store write; collaborator
// failures are written to the record as status=failed with lastError, and a
// previous audioUrl survives the failed attempt so retry does not lose it.
func (p *Pipeline) Generate(ctx context.Context, id domain.ReportID, scope []domain.PodcastSection, treatment domain.PodcastTreatment) (*domain.PodcastData, error) {
	if len(scope) == 0 {
		return nil, domain.Validationf("content_scope", "must not be empty")
	}
	for _, s := range scope {
		if !domain.KnownSection(s) {
			return nil, domain.Validationf("content_scope", "unknown section %q", string(s))
		}
	}
	if treatment != domain.TreatmentGeneralOverview && treatment != domain.TreatmentDeep {
		return nil, domain.Validationf("treatment", "unknown treatment %q", string(treatment))
	}

	if !p.acquire(id) {
		return nil, domain.ErrStageInFlight
	}
	defer p.release(id)

	rep, err := p.Repo.GetTeaching(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status != domain.StatusCompleted || rep.Result == nil {
		return nil, domain.ErrSourceNotReady
	}
	if pc := rep.Podcast; pc != nil {
		switch pc.Status {
		case domain.PodcastGenerated, domain.PodcastExporting, domain.PodcastExported:
			return nil, domain.ErrAlreadyGenerated
		}
	}

	// Checkpoint the requested scope and treatment before the external call.
	status := domain.PodcastGenerating
	clear := ""
	if _, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:       &status,
		ContentScope: scope,
		Treatment:    &treatment,
		LastError:    &clear,
		UpdatedAt:    p.Clock.Now(),
	}); err != nil {
		return nil, err
	}

	text := domain.AssembleScope(rep.Result, scope)
	audioURL, synthErr := p.Synth.Synthesize(ctx, text, treatment)
	if synthErr != nil {
		return nil, p.failStage(ctx, id, domain.StageGenerate, synthErr)
	}

	status = domain.PodcastGenerated
	pc, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:    &status,
		AudioURL:  &audioURL,
		LastError: &clear,
		UpdatedAt: p.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	p.Log.Info("podcast generated", "report_id", id, "audio_url", audioURL, "treatment", treatment)
	return pc, nil
}

// Export delivers a generated artifact to the requested targets. Every
// target is attempted even when an earlier one fails; on any failure the
// status reverts to generated with exportStatus=failed so the artifact
// remains retryable, and it never advances to exported.
func (p *Pipeline) Export(ctx context.Context, id domain.ReportID, options []domain.ExportTarget, email string) (*domain.PodcastData, error) {
	if len(options) == 0 {
		return nil, domain.Validationf("export_options", "must not be empty")
	}
	needsEmail := false
	for _, o := range options {
		switch o {
		case domain.ExportEmail:
			needsEmail = true
		case domain.ExportDrive:
		default:
			return nil, domain.Validationf("export_options", "unknown target %q", string(o))
		}
	}
	if needsEmail {
		if strings.TrimSpace(email) == "" {
			return nil, domain.Validationf("email", "required for email export")
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.Validationf("email", "malformed address")
		}
	}

	if !p.acquire(id) {
		return nil, domain.ErrStageInFlight
	}
	defer p.release(id)

	rep, err := p.Repo.GetTeaching(ctx, id)
	if err != nil {
		return nil, err
	}
	pc := rep.Podcast
	if pc == nil || pc.AudioURL == "" {
		return nil, domain.ErrNoArtifact
	}
	if pc.Status == domain.PodcastExported {
		return nil, domain.ErrAlreadyExported
	}

	status := domain.PodcastExporting
	exportStatus := domain.ExportPending
	clear := ""
	if _, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:        &status,
		ExportOptions: options,
		ExportStatus:  &exportStatus,
		LastError:     &clear,
		UpdatedAt:     p.Clock.Now(),
	}); err != nil {
		return nil, err
	}

	var failures []string
	for _, target := range options {
		exp, ok := p.Exporters[target]
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: no exporter configured", target))
			continue
		}
		if err := exp.Send(ctx, pc.AudioURL, email); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", target, err))
			continue
		}
		p.Log.Info("podcast exported", "report_id", id, "target", target)
	}

	if len(failures) > 0 {
		cause := fmt.Errorf("%s", strings.Join(failures, "; "))
		return nil, p.failExport(ctx, id, cause)
	}

	status = domain.PodcastExported
	exportStatus = domain.ExportCompleted
	out, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:       &status,
		ExportStatus: &exportStatus,
		LastError:    &clear,
		UpdatedAt:    p.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns the current podcast record for polling clients.
func (p *Pipeline) Status(ctx context.Context, id domain.ReportID) (*domain.PodcastData, error) {
	rep, err := p.Repo.GetTeaching(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Podcast == nil {
		return nil, domain.ErrNoArtifact
	}
	return rep.Podcast, nil
}

// failStage records a generation failure. The previous audioUrl, if any, is
// left untouched so the UI can still offer the last successful artifact.
func (p *Pipeline) failStage(ctx context.Context, id domain.ReportID, stage domain.FailedStage, cause error) error {
	status := domain.PodcastFailed
	msg := cause.Error()
	if _, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:      &status,
		LastError:   &msg,
		FailedStage: &stage,
		UpdatedAt:   p.Clock.Now(),
	}); err != nil {
		p.Log.Error("recording podcast failure", "report_id", id, "stage", stage, "error", err)
	}
	return &domain.CollaboratorError{Collaborator: "synthesis", Err: cause}
}

// failExport reverts to the last successful artifact state instead of a
// terminal failed status, keeping export retryable without re-synthesis.
func (p *Pipeline) failExport(ctx context.Context, id domain.ReportID, cause error) error {
	status := domain.PodcastGenerated
	exportStatus := domain.ExportFailed
	stage := domain.StageExport
	msg := cause.Error()
	if _, err := p.Repo.MergePodcast(ctx, id, domain.PodcastPatch{
		Status:       &status,
		ExportStatus: &exportStatus,
		LastError:    &msg,
		FailedStage:  &stage,
		UpdatedAt:    p.Clock.Now(),
	}); err != nil {
		p.Log.Error("recording export failure", "report_id", id, "error", err)
	}
	return &domain.CollaboratorError{Collaborator: "export", Err: cause}
}
