package reports

import (
	"context"
	"io"
)

// Repository port for primary analysis reports. Get returns ErrNotFound for
// unknown ids; implementations must be safe for concurrent use.
type Repository interface {
	Save(ctx context.Context, r *AnalysisReport) error
	Get(ctx context.Context, id ReportID) (*AnalysisReport, error)
	Latest(ctx context.Context, limit int) ([]*AnalysisReport, error)
	Delete(ctx context.Context, id ReportID) error

	// SetDeepDive overwrites the report's deep-dive sub-record without
	// touching the primary result (last-write-wins).
	SetDeepDive(ctx context.Context, id ReportID, dd DeepDive) error
}

// TeachingRepository port for teaching reports and their podcast sub-record.
type TeachingRepository interface {
	SaveTeaching(ctx context.Context, r *TeachingAnalysisReport) error
	GetTeaching(ctx context.Context, id ReportID) (*TeachingAnalysisReport, error)
	LatestTeaching(ctx context.Context, limit int) ([]*TeachingAnalysisReport, error)
	DeleteTeaching(ctx context.Context, id ReportID) error

	// MergePodcast merges a patch into the report's podcast sub-record as a
	// single atomic update, creating the default record on first use. The
	// whole report is never replaced through this method.
	MergePodcast(ctx context.Context, id ReportID, p PodcastPatch) (*PodcastData, error)
}

// Synthesizer port: produces a playable audio resource for the assembled
// text and returns its URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, treatment PodcastTreatment) (string, error)
}

// Exporter port: delivers a generated audio artifact to one destination.
// The email argument is ignored by targets that do not need it.
type Exporter interface {
	Send(ctx context.Context, audioURL, email string) error
}

// ArtifactStore port for persisting synthesized audio bytes.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}
