package reports

import (
	"strings"
	"time"
)

// TeachingResult holds the sectioned output of a teaching/letter analysis.
// Section texts are stored verbatim; the podcast pipeline concatenates them
// when assembling synthesis input.
type TeachingResult struct {
	FullReport      string `json:"full_report"`
	ChurchHistory   string `json:"church_history"`
	Promoters       string `json:"promoters"`
	ChurchCouncil   string `json:"church_council"`
	LetterOfCaution string `json:"letter_of_caution"`
	Warnings        string `json:"warnings"`
}

// Aggregate Root: TeachingAnalysisReport. Owns at most one PodcastData;
// the podcast record is removed only when the report itself is deleted.
type TeachingAnalysisReport struct {
	ID              ReportID        `json:"id"`
	Title           string          `json:"title"`
	Recipient       string          `json:"recipient,omitempty"`
	Tone            string          `json:"tone,omitempty"`
	OutputFormat    string          `json:"output_format,omitempty"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	OriginalContent string          `json:"original_content,omitempty"`
	Result          *TeachingResult `json:"result,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Podcast         *PodcastData    `json:"podcast,omitempty"`
}

// PodcastStatus enum
type PodcastStatus string

const (
	PodcastPending    PodcastStatus = "pending"
	PodcastGenerating PodcastStatus = "generating"
	PodcastGenerated  PodcastStatus = "generated"
	PodcastExporting  PodcastStatus = "exporting"
	PodcastExported   PodcastStatus = "exported"
	PodcastFailed     PodcastStatus = "failed"
)

// ExportStatus enum
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// PodcastSection enum: the fixed set of report sections selectable as
// content scope for audio synthesis.
type PodcastSection string

const (
	SectionFullReport      PodcastSection = "Full Report"
	SectionChurchHistory   PodcastSection = "Church History"
	SectionPromoters       PodcastSection = "Promoters"
	SectionChurchCouncil   PodcastSection = "Church Council"
	SectionLetterOfCaution PodcastSection = "Letter of Caution"
	SectionWarnings        PodcastSection = "Warnings"
)

// sectionOrder fixes the concatenation order for assembled scopes.
var sectionOrder = []PodcastSection{
	SectionChurchHistory,
	SectionPromoters,
	SectionChurchCouncil,
	SectionLetterOfCaution,
	SectionWarnings,
}

// KnownSection reports whether s is a member of the fixed section enumeration.
func KnownSection(s PodcastSection) bool {
	if s == SectionFullReport {
		return true
	}
	for _, k := range sectionOrder {
		if s == k {
			return true
		}
	}
	return false
}

// PodcastTreatment enum
type PodcastTreatment string

const (
	TreatmentGeneralOverview PodcastTreatment = "general_overview"
	TreatmentDeep            PodcastTreatment = "deep"
)

// ExportTarget enum
type ExportTarget string

const (
	ExportEmail ExportTarget = "email"
	ExportDrive ExportTarget = "google_drive"
)

// FailedStage records which pipeline phase produced LastError.
type FailedStage string

const (
	StageGenerate FailedStage = "generate"
	StageExport   FailedStage = "export"
)

// PodcastData is the derivative audio artifact state for one teaching
// report. Every write replaces fields in place; there is no history.
type PodcastData struct {
	Status        PodcastStatus    `json:"status"`
	ContentScope  []PodcastSection `json:"content_scope,omitempty"`
	Treatment     PodcastTreatment `json:"treatment,omitempty"`
	AudioURL      string           `json:"audio_url,omitempty"`
	ExportOptions []ExportTarget   `json:"export_options,omitempty"`
	ExportStatus  ExportStatus     `json:"export_status,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	FailedStage   FailedStage      `json:"failed_stage,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// PodcastPatch is a partial overwrite of PodcastData. Nil pointer / nil
// slice fields are left unchanged by the merge.
type PodcastPatch struct {
	Status        *PodcastStatus
	ContentScope  []PodcastSection
	Treatment     *PodcastTreatment
	AudioURL      *string
	ExportOptions []ExportTarget
	ExportStatus  *ExportStatus
	LastError     *string // non-nil empty string clears
	FailedStage   *FailedStage
	UpdatedAt     time.Time
}

// MergePodcast applies a patch to pc and returns the merged value. A nil pc
// starts from the implicit default (status pending), which is how the
// record comes into existence on the first generation request.
func MergePodcast(pc *PodcastData, p PodcastPatch) *PodcastData {
	out := PodcastData{Status: PodcastPending, ExportStatus: ExportPending}
	if pc != nil {
		out = *pc
		out.ContentScope = append([]PodcastSection(nil), pc.ContentScope...)
		out.ExportOptions = append([]ExportTarget(nil), pc.ExportOptions...)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ContentScope != nil {
		out.ContentScope = append([]PodcastSection(nil), p.ContentScope...)
	}
	if p.Treatment != nil {
		out.Treatment = *p.Treatment
	}
	if p.AudioURL != nil {
		out.AudioURL = *p.AudioURL
	}
	if p.ExportOptions != nil {
		out.ExportOptions = append([]ExportTarget(nil), p.ExportOptions...)
	}
	if p.ExportStatus != nil {
		out.ExportStatus = *p.ExportStatus
	}
	if p.LastError != nil {
		out.LastError = *p.LastError
	}
	if p.FailedStage != nil {
		out.FailedStage = *p.FailedStage
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = p.UpdatedAt
	}
	return &out
}

// AssembleScope concatenates the requested sections of a teaching result.
// Selecting Full Report unions everything: the full report text is used and
// any other selections are ignored.
func AssembleScope(res *TeachingResult, scope []PodcastSection) string {
	if res == nil {
		return ""
	}
	for _, s := range scope {
		if s == SectionFullReport {
			return strings.TrimSpace(res.FullReport)
		}
	}
	selected := make(map[PodcastSection]bool, len(scope))
	for _, s := range scope {
		selected[s] = true
	}
	var parts []string
	for _, s := range sectionOrder {
		if !selected[s] {
			continue
		}
		if txt := strings.TrimSpace(res.sectionText(s)); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *TeachingResult) sectionText(s PodcastSection) string {
	switch s {
	case SectionFullReport:
		return r.FullReport
	case SectionChurchHistory:
		return r.ChurchHistory
	case SectionPromoters:
		return r.Promoters
	case SectionChurchCouncil:
		return r.ChurchCouncil
	case SectionLetterOfCaution:
		return r.LetterOfCaution
	case SectionWarnings:
		return r.Warnings
	}
	return ""
}
