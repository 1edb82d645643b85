package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
)

// Store is the reference in-memory backend. Records are copied on every
// read and write so no caller ever holds a reference into the maps; the
// store is the sole arbiter of visibility.
type Store struct {
	mu        sync.RWMutex
	analyses  map[domain.ReportID]*domain.AnalysisReport
	teachings map[domain.ReportID]*domain.TeachingAnalysisReport
}

func NewStore() *Store {
	return &Store{
		analyses:  make(map[domain.ReportID]*domain.AnalysisReport),
		teachings: make(map[domain.ReportID]*domain.TeachingAnalysisReport),
	}
}

func (s *Store) Save(_ context.Context, r *domain.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[r.ID] = cloneAnalysis(r)
	return nil
}

func (s *Store) Get(_ context.Context, id domain.ReportID) (*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.analyses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAnalysis(r), nil
}

func (s *Store) Latest(_ context.Context, limit int) ([]*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.AnalysisReport, 0, len(s.analyses))
	for _, r := range s.analyses {
		out = append(out, cloneAnalysis(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, id domain.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.analyses[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.analyses, id)
	return nil
}

func (s *Store) SetDeepDive(_ context.Context, id domain.ReportID, dd domain.DeepDive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.analyses[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.DeepDive = &domain.DeepDive{Analysis: dd.Analysis, GeneratedAt: dd.GeneratedAt}
	r.UpdatedAt = dd.GeneratedAt
	return nil
}

func (s *Store) SaveTeaching(_ context.Context, r *domain.TeachingAnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The podcast record is owned by the store once created; a report save
	// never replaces it.
	if prev, ok := s.teachings[r.ID]; ok && prev.Podcast != nil {
		c := cloneTeaching(r)
		c.Podcast = clonePodcast(prev.Podcast)
		s.teachings[r.ID] = c
		return nil
	}
	s.teachings[r.ID] = cloneTeaching(r)
	return nil
}

func (s *Store) GetTeaching(_ context.Context, id domain.ReportID) (*domain.TeachingAnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.teachings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTeaching(r), nil
}

func (s *Store) LatestTeaching(_ context.Context, limit int) ([]*domain.TeachingAnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.TeachingAnalysisReport, 0, len(s.teachings))
	for _, r := range s.teachings {
		out = append(out, cloneTeaching(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteTeaching(_ context.Context, id domain.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teachings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.teachings, id)
	return nil
}

func (s *Store) MergePodcast(_ context.Context, id domain.ReportID, p domain.PodcastPatch) (*domain.PodcastData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.teachings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Podcast = domain.MergePodcast(r.Podcast, p)
	if !p.UpdatedAt.IsZero() {
		r.UpdatedAt = p.UpdatedAt
	}
	return clonePodcast(r.Podcast), nil
}

func cloneAnalysis(r *domain.AnalysisReport) *domain.AnalysisReport {
	c := *r
	if r.AnalysisResult != nil {
		res := *r.AnalysisResult
		res.ScripturalAnalysis = append([]domain.ScriptureEntry(nil), r.AnalysisResult.ScripturalAnalysis...)
		res.HistoricalContext = append([]domain.HistoricalEvent(nil), r.AnalysisResult.HistoricalContext...)
		res.Fallacies = append([]domain.Fallacy(nil), r.AnalysisResult.Fallacies...)
		res.ManipulativeTactics = append([]domain.ManipulativeTactic(nil), r.AnalysisResult.ManipulativeTactics...)
		res.IdentifiedIsms = append([]domain.Ism(nil), r.AnalysisResult.IdentifiedIsms...)
		res.CalvinismAnalysis = append([]domain.CalvinismEntry(nil), r.AnalysisResult.CalvinismAnalysis...)
		c.AnalysisResult = &res
	}
	if r.DeepDive != nil {
		dd := *r.DeepDive
		c.DeepDive = &dd
	}
	return &c
}

func cloneTeaching(r *domain.TeachingAnalysisReport) *domain.TeachingAnalysisReport {
	c := *r
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	c.Podcast = clonePodcast(r.Podcast)
	return &c
}

func clonePodcast(p *domain.PodcastData) *domain.PodcastData {
	if p == nil {
		return nil
	}
	c := *p
	c.ContentScope = append([]domain.PodcastSection(nil), p.ContentScope...)
	c.ExportOptions = append([]domain.ExportTarget(nil), p.ExportOptions...)
	return &c
}
