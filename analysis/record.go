package analysis

import (
	"encoding/json"
	"fmt"
)

// ModelVersion is reported with every full analysis.
const ModelVersion = "1.0.0"

// RecordSchema is bumped whenever the stored layout changes. Records with a
// different schema are treated as absent.
const RecordSchema = 1

// Record is the value stored under a cache key.
type Record struct {
	Schema         int                   `json:"schema"`
	Variant        Variant               `json:"variant"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Interpretation *InterpretationResult `json:"interpretation,omitempty"`
	ProcessingTime float64               `json:"processing_time,omitempty"`
	ModelVersion   string                `json:"model_version,omitempty"`
}

// ClassificationRecord wraps a classification result.
func ClassificationRecord(c ClassificationResult) Record {
	return Record{Schema: RecordSchema, Variant: Classification, Classification: &c}
}

// InterpretationRecord wraps an interpretation result.
func InterpretationRecord(i InterpretationResult) Record {
	return Record{Schema: RecordSchema, Variant: Interpretation, Interpretation: &i}
}

// FullRecord wraps a full analysis.
func FullRecord(f FullAnalysisResult) Record {
	return Record{
		Schema:         RecordSchema,
		Variant:        Full,
		Classification: &f.Classification,
		Interpretation: &f.Interpretation,
		ProcessingTime: f.ProcessingTime,
		ModelVersion:   f.ModelVersion,
	}
}

// Validate checks that the record carries what its variant promises.
func (r Record) Validate() error {
	if r.Schema != RecordSchema {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, r.Schema, RecordSchema)
	}
	if !r.Variant.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownVariant, int(r.Variant))
	}
	if r.Variant.Satisfies(Classification) && r.Classification == nil {
		return fmt.Errorf("%w: %s record without classification", ErrCorruptRecord, r.Variant)
	}
	if r.Variant.Satisfies(Interpretation) && r.Interpretation == nil {
		return fmt.Errorf("%w: %s record without interpretation", ErrCorruptRecord, r.Variant)
	}
	if r.Classification != nil {
		if err := r.Classification.Vector().Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
	}
	return nil
}

// AsClassification projects the record onto a classification result.
func (r Record) AsClassification() (ClassificationResult, bool) {
	if !r.Variant.Satisfies(Classification) || r.Classification == nil {
		return ClassificationResult{}, false
	}
	return *r.Classification, true
}

// AsInterpretation projects the record onto an interpretation result.
func (r Record) AsInterpretation() (InterpretationResult, bool) {
	if !r.Variant.Satisfies(Interpretation) || r.Interpretation == nil {
		return InterpretationResult{}, false
	}
	return *r.Interpretation, true
}

// AsFull projects the record onto a full analysis result.
func (r Record) AsFull() (FullAnalysisResult, bool) {
	if r.Variant != Full || r.Classification == nil || r.Interpretation == nil {
		return FullAnalysisResult{}, false
	}
	return FullAnalysisResult{
		Classification: *r.Classification,
		Interpretation: *r.Interpretation,
		ProcessingTime: r.ProcessingTime,
		ModelVersion:   r.ModelVersion,
	}, true
}

// EncodeRecord serializes a record after validating it.
func EncodeRecord(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeRecord parses and validates a stored record.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
