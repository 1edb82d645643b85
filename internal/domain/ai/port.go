package ai

import (
	"context"

	"github.com/profjobell/studio-sub000/internal/domain/reports"
)

// Intent selects the prompt frame for a model call.
type Intent string

const (
	// IntentPrimary runs the full doctrinal analysis of submitted content.
	IntentPrimary Intent = "primary"
	// IntentTeaching runs the sectioned teaching/letter analysis.
	IntentTeaching Intent = "teaching"
	// IntentDeepDive runs the narrower secondary analysis of retained content.
	IntentDeepDive Intent = "deep_dive"
)

// Output carries the structured model result. Exactly one field is set,
// matching the intent of the call.
type Output struct {
	Analysis *reports.AnalysisResult
	Teaching *reports.TeachingResult
	DeepDive string
}

// Client is the analysis model collaborator. A response payload carrying an
// error field is returned as an error, identical to a transport failure.
// It is never treated as an empty success.
type Client interface {
	Analyze(ctx context.Context, content string, intent Intent) (*Output, error)
}
