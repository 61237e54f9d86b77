package analysis

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestVariant_Satisfies(t *testing.T) {
	tests := []struct {
		stored Variant
		req    Variant
		want   bool
	}{
		{Full, Full, true},
		{Full, Classification, true},
		{Full, Interpretation, true},
		{Classification, Classification, true},
		{Classification, Interpretation, false},
		{Classification, Full, false},
		{Interpretation, Interpretation, true},
		{Interpretation, Classification, false},
		{Interpretation, Full, false},
		{Variant(0), Classification, false},
		{Full, Variant(9), false},
	}

	for _, tt := range tests {
		t.Run(tt.stored.String()+"/"+tt.req.String(), func(t *testing.T) {
			if got := tt.stored.Satisfies(tt.req); got != tt.want {
				t.Errorf("%s.Satisfies(%s) = %v, want %v", tt.stored, tt.req, got, tt.want)
			}
		})
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants() {
		got, err := ParseVariant(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVariant(%q) = %v, %v", v.String(), got, err)
		}
	}
	if _, err := ParseVariant("partial"); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("ParseVariant(partial) error = %v, want ErrUnknownVariant", err)
	}
}

func TestVariant_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		V Variant `json:"v"`
	}{Interpretation})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"v":"interpretation"}` {
		t.Errorf("Marshal = %s", data)
	}

	if _, err := json.Marshal(Variant(42)); err == nil {
		t.Error("Marshal of unknown variant should fail")
	}

	var v Variant
	if err := json.Unmarshal([]byte(`"bogus"`), &v); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Unmarshal(bogus) error = %v", err)
	}
}
