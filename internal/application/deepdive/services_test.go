package deepdive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/profjobell/studio-sub000/internal/domain/ai"
	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/infra/db/memory"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeModel struct {
	texts []string
	err   error
	calls int
}

func (f *fakeModel) Analyze(_ context.Context, _ string, intent domai.Intent) (*domai.Output, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	if intent != domai.IntentDeepDive {
		return nil, errors.New("unexpected intent")
	}
	return &domai.Output{DeepDive: text}, nil
}

// failingDeepDiveRepo wraps the memory store and fails SetDeepDive.
type failingDeepDiveRepo struct {
	domain.Repository
}

func (f *failingDeepDiveRepo) SetDeepDive(context.Context, domain.ReportID, domain.DeepDive) error {
	return errors.New("store write rejected")
}

func seedReport(t *testing.T, store *memory.Store, content string) *domain.AnalysisReport {
	t.Helper()
	rep := &domain.AnalysisReport{
		ID:              "r1",
		Title:           "seeded",
		AnalysisType:    domain.TypeText,
		Status:          domain.StatusCompleted,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
		OriginalContent: content,
		AnalysisResult:  &domain.AnalysisResult{Summary: "primary summary"},
	}
	require.NoError(t, store.Save(context.Background(), rep))
	return rep
}

func newService(repo domain.Repository, model domai.Client) *Service {
	return &Service{
		Repo:  repo,
		Model: model,
		Clock: fixedClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		Log:   logger.NewNop(),
	}
}

func TestRequestUnknownReport(t *testing.T) {
	svc := newService(memory.NewStore(), &fakeModel{texts: []string{"x"}})
	_, err := svc.Request(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestMissingOriginalContent(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "")
	svc := newService(store, &fakeModel{texts: []string{"x"}})

	_, err := svc.Request(context.Background(), "r1")
	assert.ErrorIs(t, err, domain.ErrMissingOriginalContent)
}

func TestRequestModelFailure(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "content")
	svc := newService(store, &fakeModel{err: errors.New("transport down")})

	_, err := svc.Request(context.Background(), "r1")
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)

	rep, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, rep.DeepDive, "failed deep dive must not persist")
}

func TestRequestReturnsAndPersists(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "the submitted content")
	svc := newService(store, &fakeModel{texts: []string{"deep analysis text"}})

	out, err := svc.Request(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "deep analysis text", out.Analysis)
	assert.Equal(t, domain.ReportID("r1"), out.ReportID)

	rep, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, rep.DeepDive)
	assert.Equal(t, "deep analysis text", rep.DeepDive.Analysis)

	// primary fields untouched
	assert.Equal(t, domain.StatusCompleted, rep.Status)
	assert.Equal(t, "the submitted content", rep.OriginalContent)
	assert.Equal(t, "primary summary", rep.AnalysisResult.Summary)
}

func TestRequestPersistenceFailureStillReturnsResult(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "content")
	svc := newService(&failingDeepDiveRepo{Repository: store}, &fakeModel{texts: []string{"analysis"}})

	out, err := svc.Request(context.Background(), "r1")
	require.NoError(t, err, "persistence failure does not invalidate the analysis")
	assert.Equal(t, "analysis", out.Analysis)
}

func TestSecondRequestOverwrites(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "content")
	svc := newService(store, &fakeModel{texts: []string{"first", "second"}})

	_, err := svc.Request(context.Background(), "r1")
	require.NoError(t, err)
	_, err = svc.Request(context.Background(), "r1")
	require.NoError(t, err)

	rep, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "second", rep.DeepDive.Analysis, "last write wins, no merge")
}
