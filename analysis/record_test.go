package analysis

import (
	"errors"
	"reflect"
	"testing"
)

func sampleFull(t *testing.T) FullAnalysisResult {
	t.Helper()
	c, err := NewClassification(Probabilities{0.1, 0.05, 0.8, 0.05})
	if err != nil {
		t.Fatal(err)
	}
	return FullAnalysisResult{
		Classification: c,
		Interpretation: NewInterpretation(c, []byte{0x89, 'P', 'N', 'G'}, Explanation{
			Features: []Feature{{Segment: 3, Weight: 0.42}, {Segment: 11, Weight: -0.07}},
			Image:    []byte{1, 2, 3},
		}),
		ProcessingTime: 0.123456789,
		ModelVersion:   ModelVersion,
	}
}

func TestRecord_EncodeDecodeStable(t *testing.T) {
	full := sampleFull(t)
	records := []Record{
		ClassificationRecord(full.Classification),
		InterpretationRecord(full.Interpretation),
		FullRecord(full),
	}

	for _, rec := range records {
		t.Run(rec.Variant.String(), func(t *testing.T) {
			data, err := EncodeRecord(rec)
			if err != nil {
				t.Fatalf("EncodeRecord() error = %v", err)
			}
			got, err := DecodeRecord(data)
			if err != nil {
				t.Fatalf("DecodeRecord() error = %v", err)
			}
			if !reflect.DeepEqual(got, rec) {
				t.Errorf("decoded record differs:\n got  %+v\n want %+v", got, rec)
			}
		})
	}
}

func TestRecord_Projections(t *testing.T) {
	full := sampleFull(t)
	rec := FullRecord(full)

	if c, ok := rec.AsClassification(); !ok || !reflect.DeepEqual(c, full.Classification) {
		t.Error("full record should project to classification")
	}
	if i, ok := rec.AsInterpretation(); !ok || !reflect.DeepEqual(i, full.Interpretation) {
		t.Error("full record should project to interpretation")
	}
	if f, ok := rec.AsFull(); !ok || !reflect.DeepEqual(f, full) {
		t.Error("full record should project to full")
	}

	narrow := ClassificationRecord(full.Classification)
	if _, ok := narrow.AsInterpretation(); ok {
		t.Error("classification record must not project to interpretation")
	}
	if _, ok := narrow.AsFull(); ok {
		t.Error("classification record must not project to full")
	}
}

func TestDecodeRecord_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"garbage", `not json`, ErrCorruptRecord},
		{"truncated", `{"schema":1,"variant":"full","classif`, ErrCorruptRecord},
		{"old schema", `{"schema":0,"variant":"classification"}`, ErrSchemaMismatch},
		{"unknown variant", `{"schema":1,"variant":"partial"}`, ErrUnknownVariant},
		{"missing part", `{"schema":1,"variant":"full","classification":{"class_name":"NonDemented","confidence":1,"class_id":2,"probabilities":{"NonDemented":1}}}`, ErrCorruptRecord},
		{"bad probabilities", `{"schema":1,"variant":"classification","classification":{"class_name":"NonDemented","confidence":1,"class_id":2,"probabilities":{"NonDemented":3}}}`, ErrCorruptRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRecord([]byte(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeRecord_RejectsIncomplete(t *testing.T) {
	if _, err := EncodeRecord(Record{Schema: RecordSchema, Variant: Full}); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("EncodeRecord() error = %v, want ErrCorruptRecord", err)
	}
}
