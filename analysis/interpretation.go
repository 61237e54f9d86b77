package analysis

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Severity is the coarse rating attached to an interpretation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
)

// SeverityThreshold is the confidence above which severity is "moderate".
const SeverityThreshold = 0.8

// MaxTopFeatures caps the attribution features kept in a result.
const MaxTopFeatures = 5

// SeverityFor maps model confidence to a severity. The rule looks only at
// confidence, not at which class was predicted.
func SeverityFor(confidence float64) Severity {
	if confidence > SeverityThreshold {
		return SeverityModerate
	}
	return SeverityLow
}

// Findings returns the two fixed finding lines for a classification.
func Findings(c ClassificationResult) []string {
	return []string{
		fmt.Sprintf("Detected %s degree of dementia", c.ClassName),
		fmt.Sprintf("Model confidence: %.2f%%", c.Confidence*100),
	}
}

// Recommendations returns the fixed recommendation lines.
func Recommendations() []string {
	return []string{
		"Consultation with a neurologist is recommended",
		"Conduct additional examinations",
	}
}

// Feature is one image segment and its attribution weight.
type Feature struct {
	Segment int     `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Explanation is what a local attribution explainer returns: features
// ranked by the explainer, plus an optional rendered overlay (PNG).
type Explanation struct {
	Features []Feature
	Image    []byte
}

// TopFeatures keeps the first n features in the order given.
func TopFeatures(features []Feature, n int) []Feature {
	return slices.Clone(lo.Slice(features, 0, n))
}

// InterpretationResult explains a classification.
type InterpretationResult struct {
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	Severity        Severity  `json:"severity"`
	Saliency        []byte    `json:"saliency"`
	TopFeatures     []Feature `json:"top_features"`
	// AttributionImage is nil when the explainer produced no overlay.
	AttributionImage []byte `json:"attribution_image,omitempty"`
}

// NewInterpretation assembles an interpretation from a classification, a
// rendered saliency PNG and a local explanation.
func NewInterpretation(c ClassificationResult, saliency []byte, exp Explanation) InterpretationResult {
	top := TopFeatures(exp.Features, MaxTopFeatures)
	if top == nil {
		top = []Feature{}
	}
	var overlay []byte
	if len(exp.Image) > 0 {
		overlay = slices.Clone(exp.Image)
	}
	return InterpretationResult{
		Findings:         Findings(c),
		Recommendations:  Recommendations(),
		Severity:         SeverityFor(c.Confidence),
		Saliency:         slices.Clone(saliency),
		TopFeatures:      top,
		AttributionImage: overlay,
	}
}

// FullAnalysisResult combines classification and interpretation.
type FullAnalysisResult struct {
	Classification ClassificationResult `json:"classification"`
	Interpretation InterpretationResult `json:"interpretation"`
	// ProcessingTime is the computation time in seconds.
	ProcessingTime float64 `json:"processing_time"`
	ModelVersion   string  `json:"model_version"`
}
