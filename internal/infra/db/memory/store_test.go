package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
)

func analysisAt(id string, created time.Time) *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ID:           domain.ReportID(id),
		Title:        "report " + id,
		AnalysisType: domain.TypeText,
		Status:       domain.StatusProcessing,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestAnalysisCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now().UTC()

	require.NoError(t, s.Save(ctx, analysisAt("a", now)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportID("a"), got.ID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrNotFound)
}

func TestLatestOrdersByCreatedAtDesc(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Now().UTC()

	require.NoError(t, s.Save(ctx, analysisAt("old", base.Add(-2*time.Hour))))
	require.NoError(t, s.Save(ctx, analysisAt("new", base)))
	require.NoError(t, s.Save(ctx, analysisAt("mid", base.Add(-time.Hour))))

	list, err := s.Latest(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.ReportID("new"), list[0].ID)
	assert.Equal(t, domain.ReportID("mid"), list[1].ID)
	assert.Equal(t, domain.ReportID("old"), list[2].ID)

	limited, err := s.Latest(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rep := analysisAt("a", time.Now().UTC())
	rep.AnalysisResult = &domain.AnalysisResult{Summary: "original"}
	rep.Status = domain.StatusCompleted
	require.NoError(t, s.Save(ctx, rep))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.AnalysisResult.Summary = "mutated"
	got.Title = "mutated"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "original", again.AnalysisResult.Summary)
	assert.Equal(t, "report a", again.Title)
}

func TestSetDeepDiveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Save(ctx, analysisAt("a", time.Now().UTC())))

	first := domain.DeepDive{Analysis: "first", GeneratedAt: time.Now().UTC()}
	require.NoError(t, s.SetDeepDive(ctx, "a", first))
	second := domain.DeepDive{Analysis: "second", GeneratedAt: time.Now().UTC()}
	require.NoError(t, s.SetDeepDive(ctx, "a", second))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.DeepDive)
	assert.Equal(t, "second", got.DeepDive.Analysis)

	assert.ErrorIs(t, s.SetDeepDive(ctx, "missing", first), domain.ErrNotFound)
}

func teachingAt(id string, created time.Time) *domain.TeachingAnalysisReport {
	return &domain.TeachingAnalysisReport{
		ID:        domain.ReportID(id),
		Title:     "teaching " + id,
		Status:    domain.StatusCompleted,
		CreatedAt: created,
		UpdatedAt: created,
		Result:    &domain.TeachingResult{FullReport: "full"},
	}
}

func TestMergePodcastCreatesDefaultRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveTeaching(ctx, teachingAt("t", time.Now().UTC())))

	status := domain.PodcastGenerating
	pc, err := s.MergePodcast(ctx, "t", domain.PodcastPatch{
		Status:       &status,
		ContentScope: []domain.PodcastSection{domain.SectionFullReport},
		UpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PodcastGenerating, pc.Status)
	assert.Equal(t, domain.ExportPending, pc.ExportStatus)

	_, err = s.MergePodcast(ctx, "missing", domain.PodcastPatch{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMergePodcastPreservesUnpatchedFields(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveTeaching(ctx, teachingAt("t", time.Now().UTC())))

	url := "http://minio/audio/t.mp3"
	generated := domain.PodcastGenerated
	_, err := s.MergePodcast(ctx, "t", domain.PodcastPatch{Status: &generated, AudioURL: &url})
	require.NoError(t, err)

	failed := domain.PodcastFailed
	msg := "tts down"
	pc, err := s.MergePodcast(ctx, "t", domain.PodcastPatch{Status: &failed, LastError: &msg})
	require.NoError(t, err)
	assert.Equal(t, url, pc.AudioURL)
	assert.Equal(t, "tts down", pc.LastError)
}

func TestSaveTeachingDoesNotClobberPodcast(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rep := teachingAt("t", time.Now().UTC())
	require.NoError(t, s.SaveTeaching(ctx, rep))

	generated := domain.PodcastGenerated
	url := "http://minio/audio/t.mp3"
	_, err := s.MergePodcast(ctx, "t", domain.PodcastPatch{Status: &generated, AudioURL: &url})
	require.NoError(t, err)

	// a later whole-report save carries no podcast but must not erase it
	require.NoError(t, s.SaveTeaching(ctx, teachingAt("t", time.Now().UTC())))

	got, err := s.GetTeaching(ctx, "t")
	require.NoError(t, err)
	require.NotNil(t, got.Podcast)
	assert.Equal(t, url, got.Podcast.AudioURL)
}

func TestDeleteTeachingRemovesPodcast(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveTeaching(ctx, teachingAt("t", time.Now().UTC())))

	generated := domain.PodcastGenerated
	_, err := s.MergePodcast(ctx, "t", domain.PodcastPatch{Status: &generated})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTeaching(ctx, "t"))
	_, err = s.GetTeaching(ctx, "t")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
