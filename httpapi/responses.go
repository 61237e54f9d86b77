package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/neuroscan/analysis"
)

// interpretationResponse is the wire form of an interpretation. The
// saliency heatmap and the attribution overlay travel as base64 PNG.
type interpretationResponse struct {
	Findings        []string       `json:"findings"`
	Recommendations []string       `json:"recommendations"`
	Severity        string         `json:"severity"`
	AdditionalInfo  additionalInfo `json:"additional_info"`
}

type additionalInfo struct {
	HeatmapImg      []byte          `json:"heatmap_img"`
	LimeExplanation limeExplanation `json:"lime_explanation"`
	LimeImg         []byte          `json:"lime_img,omitempty"`
}

type limeExplanation struct {
	TopFeatures []analysis.Feature `json:"top_features"`
}

type analyzeResponse struct {
	Classification analysis.ClassificationResult `json:"classification"`
	Interpretation interpretationResponse        `json:"interpretation"`
	ProcessingTime float64                       `json:"processing_time"`
	ModelVersion   string                        `json:"model_version"`
}

func toInterpretationResponse(i analysis.InterpretationResult) interpretationResponse {
	features := i.TopFeatures
	if features == nil {
		features = []analysis.Feature{}
	}
	return interpretationResponse{
		Findings:        i.Findings,
		Recommendations: i.Recommendations,
		Severity:        string(i.Severity),
		AdditionalInfo: additionalInfo{
			HeatmapImg:      i.Saliency,
			LimeExplanation: limeExplanation{TopFeatures: features},
			LimeImg:         i.AttributionImage,
		},
	}
}

func toAnalyzeResponse(f analysis.FullAnalysisResult) analyzeResponse {
	return analyzeResponse{
		Classification: f.Classification,
		Interpretation: toInterpretationResponse(f.Interpretation),
		ProcessingTime: f.ProcessingTime,
		ModelVersion:   f.ModelVersion,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errorCode, detail string) {
	writeJSON(w, code, errorBody{Detail: detail, ErrorCode: errorCode})
}
