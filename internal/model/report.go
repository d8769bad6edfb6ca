package model

import "time"

// Report is the complete analysis of one letter
type Report struct {
	LetterID    string    `json:"letter_id"`
	Name        string    `json:"name,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	Characters  int       `json:"characters"`

	Codep      string     `json:"codep,omitempty"`      // CODEP-XXX-YYYY-NNNNNN
	Inspection string     `json:"inspection,omitempty"` // INSSN-XXX-YYYY-NNNN
	SentAt     *time.Time `json:"sent_at,omitempty"`

	Zones   []Zone       `json:"zones"`
	Demands []DemandSpan `json:"demands"`

	ModelName         string               `json:"model,omitempty"`
	Predictions       []SentencePrediction `json:"predictions,omitempty"`
	Unresolved        int                  `json:"unresolved,omitempty"`
	DemandPredictions []DemandPrediction   `json:"demand_predictions,omitempty"`
	DemandsA          []DemandTopics       `json:"demands_a,omitempty"`
	DemandsB          []DemandTopics       `json:"demands_b,omitempty"`

	Failures []Failure `json:"failures,omitempty"`
}

// Zone returns the zone with the given priority, if present
func (r *Report) Zone(p ZonePriority) (Zone, bool) {
	for _, z := range r.Zones {
		if z.Priority == p {
			return z, true
		}
	}
	return Zone{}, false
}

// Failed reports whether a failure of the given kind was recorded
func (r *Report) Failed(kind FailureKind) bool {
	for _, f := range r.Failures {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// Failure is a per-letter problem that was logged and swallowed
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// FailureKind classifies per-letter failures
type FailureKind string

const (
	FailureFormatUnrecognized       FailureKind = "format_unrecognized"       // Segmentation raised; zero zones kept
	FailureDemandExtraction         FailureKind = "demand_extraction"         // Zones kept; no demands
	FailureClassificationUnresolved FailureKind = "classification_unresolved" // Category without a bottom estimator
	FailureClassificationException  FailureKind = "classification_exception"  // Estimator call failed; no predictions kept
	FailureEmbedding                FailureKind = "embedding"                 // Embedding service failed
	FailureTimeout                  FailureKind = "timeout"                   // Partial result discarded
)
