package podcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/infra/db/memory"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeSynth struct {
	url     string
	err     error
	calls   int
	gotText string
	started chan struct{} // when set, closed on entry
	block   chan struct{} // when set, Synthesize waits until closed
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, _ domain.PodcastTreatment) (string, error) {
	f.calls++
	f.gotText = text
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeExporter struct {
	err      error
	calls    int
	gotURL   string
	gotEmail string
}

func (f *fakeExporter) Send(_ context.Context, audioURL, email string) error {
	f.calls++
	f.gotURL = audioURL
	f.gotEmail = email
	return f.err
}

func seedTeaching(t *testing.T, store *memory.Store, status domain.Status) {
	t.Helper()
	rep := &domain.TeachingAnalysisReport{
		ID:        "t1",
		Title:     "teaching",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if status == domain.StatusCompleted {
		rep.Result = &domain.TeachingResult{
			FullReport:    "full report body",
			ChurchHistory: "history body",
			Warnings:      "warnings body",
		}
	}
	require.NoError(t, store.SaveTeaching(context.Background(), rep))
}

func newPipeline(store *memory.Store, synth domain.Synthesizer, exporters map[domain.ExportTarget]domain.Exporter) *Pipeline {
	return NewPipeline(store, synth, exporters, fixedClock{t: time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)}, logger.NewNop())
}

func podcastOf(t *testing.T, store *memory.Store) *domain.PodcastData {
	t.Helper()
	rep, err := store.GetTeaching(context.Background(), "t1")
	require.NoError(t, err)
	return rep.Podcast
}

func TestGenerateValidation(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, nil)

	tests := []struct {
		name      string
		scope     []domain.PodcastSection
		treatment domain.PodcastTreatment
	}{
		{"empty scope", nil, domain.TreatmentGeneralOverview},
		{"unknown section", []domain.PodcastSection{"Appendix"}, domain.TreatmentGeneralOverview},
		{"unknown treatment", []domain.PodcastSection{domain.SectionFullReport}, "casual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Generate(context.Background(), "t1", tt.scope, tt.treatment)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Nil(t, podcastOf(t, store), "no write may happen on validation failure")
		})
	}
}

func TestGenerateSourceChecks(t *testing.T) {
	store := memory.NewStore()
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, nil)
	scope := []domain.PodcastSection{domain.SectionFullReport}

	_, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seedTeaching(t, store, domain.StatusProcessing)
	_, err = p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	assert.ErrorIs(t, err, domain.ErrSourceNotReady)
	assert.Nil(t, podcastOf(t, store))
}

func TestGenerateHappyPath(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{url: "http://minio/podcasts/a.mp3"}
	p := newPipeline(store, synth, nil)

	pc, err := p.Generate(context.Background(), "t1",
		[]domain.PodcastSection{domain.SectionFullReport}, domain.TreatmentGeneralOverview)
	require.NoError(t, err)
	assert.Equal(t, domain.PodcastGenerated, pc.Status)
	assert.Equal(t, "http://minio/podcasts/a.mp3", pc.AudioURL)
	assert.Equal(t, "full report body", synth.gotText, "full report scope uses the full text")
	assert.Empty(t, pc.LastError)

	stored := podcastOf(t, store)
	assert.Equal(t, domain.PodcastGenerated, stored.Status)
	assert.Equal(t, []domain.PodcastSection{domain.SectionFullReport}, stored.ContentScope)
}

func TestGenerateScopeUnion(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{url: "http://minio/a.mp3"}
	p := newPipeline(store, synth, nil)

	_, err := p.Generate(context.Background(), "t1",
		[]domain.PodcastSection{domain.SectionWarnings, domain.SectionFullReport}, domain.TreatmentDeep)
	require.NoError(t, err)
	assert.Equal(t, "full report body", synth.gotText)
}

func TestGenerateSynthesisFailure(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{err: errors.New("tts unavailable")}
	p := newPipeline(store, synth, nil)

	_, err := p.Generate(context.Background(), "t1",
		[]domain.PodcastSection{domain.SectionWarnings}, domain.TreatmentGeneralOverview)
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)

	pc := podcastOf(t, store)
	require.NotNil(t, pc)
	assert.Equal(t, domain.PodcastFailed, pc.Status)
	assert.Contains(t, pc.LastError, "tts unavailable")
	assert.Equal(t, domain.StageGenerate, pc.FailedStage)
	assert.Empty(t, pc.AudioURL)
}

func TestGenerateRetryAfterFailure(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{err: errors.New("flaky")}
	p := newPipeline(store, synth, nil)
	scope := []domain.PodcastSection{domain.SectionWarnings}

	_, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	require.Error(t, err)

	synth.err = nil
	synth.url = "http://minio/retry.mp3"
	pc, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	require.NoError(t, err, "failed is an eligible-to-retry status")
	assert.Equal(t, domain.PodcastGenerated, pc.Status)
	assert.Equal(t, "http://minio/retry.mp3", pc.AudioURL)
	assert.Empty(t, pc.LastError)
}

func TestGenerateRejectsExistingArtifact(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{url: "http://minio/a.mp3"}
	p := newPipeline(store, synth, nil)
	scope := []domain.PodcastSection{domain.SectionFullReport}

	first, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	assert.ErrorIs(t, err, domain.ErrAlreadyGenerated)
	assert.Equal(t, 1, synth.calls)

	pc := podcastOf(t, store)
	assert.Equal(t, first.AudioURL, pc.AudioURL, "rejection leaves the artifact unchanged")
}

func TestGenerateSingleFlight(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	synth := &fakeSynth{url: "http://minio/a.mp3", started: make(chan struct{}), block: make(chan struct{})}
	started := synth.started
	p := newPipeline(store, synth, nil)
	scope := []domain.PodcastSection{domain.SectionFullReport}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
		assert.NoError(t, err)
	}()

	// wait for the first call to reach the synthesizer, then race a second
	<-started
	_, err := p.Generate(context.Background(), "t1", scope, domain.TreatmentGeneralOverview)
	assert.ErrorIs(t, err, domain.ErrStageInFlight)

	close(synth.block)
	wg.Wait()
}

func TestExportValidation(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, nil)

	tests := []struct {
		name    string
		options []domain.ExportTarget
		email   string
	}{
		{"empty options", nil, ""},
		{"unknown target", []domain.ExportTarget{"ftp"}, ""},
		{"email target without address", []domain.ExportTarget{domain.ExportEmail}, ""},
		{"malformed address", []domain.ExportTarget{domain.ExportEmail}, "not-an-address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Export(context.Background(), "t1", tt.options, tt.email)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Nil(t, podcastOf(t, store), "no status mutation on validation failure")
		})
	}
}

func TestExportWithoutArtifact(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	p := newPipeline(store, &fakeSynth{}, map[domain.ExportTarget]domain.Exporter{
		domain.ExportEmail: &fakeExporter{},
	})

	_, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportEmail}, "user@example.com")
	assert.ErrorIs(t, err, domain.ErrNoArtifact)
	assert.Nil(t, podcastOf(t, store))
}

func generateArtifact(t *testing.T, p *Pipeline) {
	t.Helper()
	_, err := p.Generate(context.Background(), "t1",
		[]domain.PodcastSection{domain.SectionFullReport}, domain.TreatmentGeneralOverview)
	require.NoError(t, err)
}

func TestExportHappyPath(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	mailer := &fakeExporter{}
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, map[domain.ExportTarget]domain.Exporter{
		domain.ExportEmail: mailer,
	})
	generateArtifact(t, p)

	pc, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportEmail}, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.PodcastExported, pc.Status)
	assert.Equal(t, domain.ExportCompleted, pc.ExportStatus)
	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "http://minio/a.mp3", mailer.gotURL)
	assert.Equal(t, "user@example.com", mailer.gotEmail)
}

func TestExportPartialFailure(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	mailer := &fakeExporter{}
	drive := &fakeExporter{err: errors.New("drive quota")}
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, map[domain.ExportTarget]domain.Exporter{
		domain.ExportEmail: mailer,
		domain.ExportDrive: drive,
	})
	generateArtifact(t, p)

	_, err := p.Export(context.Background(), "t1",
		[]domain.ExportTarget{domain.ExportEmail, domain.ExportDrive}, "user@example.com")
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)

	// both targets were attempted despite the failure
	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, 1, drive.calls)

	pc := podcastOf(t, store)
	assert.Equal(t, domain.PodcastGenerated, pc.Status, "reverts to the last successful artifact state")
	assert.Equal(t, domain.ExportFailed, pc.ExportStatus)
	assert.Contains(t, pc.LastError, "google_drive")
	assert.NotContains(t, pc.LastError, "email:")
	assert.Equal(t, "http://minio/a.mp3", pc.AudioURL)
}

func TestExportRetryAfterFailure(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	drive := &fakeExporter{err: errors.New("drive down")}
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, map[domain.ExportTarget]domain.Exporter{
		domain.ExportDrive: drive,
	})
	generateArtifact(t, p)

	_, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportDrive}, "")
	require.Error(t, err)

	drive.err = nil
	pc, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportDrive}, "")
	require.NoError(t, err, "export is retryable without re-synthesis")
	assert.Equal(t, domain.PodcastExported, pc.Status)
	assert.Equal(t, domain.ExportCompleted, pc.ExportStatus)
}

func TestExportRejectsRepeat(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	mailer := &fakeExporter{}
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, map[domain.ExportTarget]domain.Exporter{
		domain.ExportEmail: mailer,
	})
	generateArtifact(t, p)

	_, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportEmail}, "user@example.com")
	require.NoError(t, err)

	_, err = p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportEmail}, "user@example.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyExported)
	assert.Equal(t, 1, mailer.calls, "no second delivery side effect")
}

func TestExportUnconfiguredTarget(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, map[domain.ExportTarget]domain.Exporter{})
	generateArtifact(t, p)

	_, err := p.Export(context.Background(), "t1", []domain.ExportTarget{domain.ExportDrive}, "")
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)

	pc := podcastOf(t, store)
	assert.Equal(t, domain.ExportFailed, pc.ExportStatus)
	assert.Contains(t, pc.LastError, "no exporter configured")
}

func TestStatusReflectsPipelineProgress(t *testing.T) {
	store := memory.NewStore()
	seedTeaching(t, store, domain.StatusCompleted)
	p := newPipeline(store, &fakeSynth{url: "http://minio/a.mp3"}, nil)

	_, err := p.Status(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrNoArtifact, "no record before the first generation attempt")

	generateArtifact(t, p)
	pc, err := p.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.PodcastGenerated, pc.Status)
}
