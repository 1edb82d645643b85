package reports

import (
	"time"
)

// ID tipe untuk Report
type ReportID string

// AnalysisType enum
type AnalysisType string

const (
	TypeText         AnalysisType = "text"
	TypeFileAudio    AnalysisType = "file_audio"
	TypeFileVideo    AnalysisType = "file_video"
	TypeFileDocument AnalysisType = "file_document"
)

// Status enum
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ScriptureEntry value object: one verse compared against the KJV 1611 text
type ScriptureEntry struct {
	Verse    string `json:"verse"`
	Analysis string `json:"analysis"`
}

// HistoricalEvent value object
type HistoricalEvent struct {
	Event        string `json:"event"`
	Significance string `json:"significance"`
}

// Fallacy value object
type Fallacy struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ManipulativeTactic value object
type ManipulativeTactic struct {
	Technique string `json:"technique"`
	Example   string `json:"example"`
}

// Ism value object: an identified "-ism" with supporting evidence
type Ism struct {
	Ism        string `json:"ism"`
	Definition string `json:"definition"`
	Evidence   string `json:"evidence"`
}

// CalvinismEntry value object
type CalvinismEntry struct {
	Element    string `json:"element"`
	Assessment string `json:"assessment"`
}

// AnalysisResult is the structured payload returned by the model for a
// primary content analysis. Present only when the report is completed.
type AnalysisResult struct {
	Summary             string               `json:"summary"`
	ScripturalAnalysis  []ScriptureEntry     `json:"scriptural_analysis"`
	HistoricalContext   []HistoricalEvent    `json:"historical_context"`
	Fallacies           []Fallacy            `json:"fallacies"`
	ManipulativeTactics []ManipulativeTactic `json:"manipulative_tactics"`
	IdentifiedIsms      []Ism                `json:"identified_isms"`
	CalvinismAnalysis   []CalvinismEntry     `json:"calvinism_analysis"`
}

// DeepDive is the secondary analysis appended to a report. It never replaces
// the primary AnalysisResult; a second request overwrites the previous one.
type DeepDive struct {
	Analysis    string    `json:"analysis"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Aggregate Root: AnalysisReport
type AnalysisReport struct {
	ID              ReportID        `json:"id"`
	Title           string          `json:"title"`
	AnalysisType    AnalysisType    `json:"analysis_type"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	OriginalContent string          `json:"original_content,omitempty"`
	AnalysisResult  *AnalysisResult `json:"analysis_result,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	DeepDive        *DeepDive       `json:"deep_dive,omitempty"`
}
