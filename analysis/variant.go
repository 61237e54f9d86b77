package analysis

import "fmt"

// Variant is the kind of result a request asks for, or a record holds.
type Variant int

const (
	Classification Variant = iota + 1
	Interpretation
	Full
)

var variantNames = map[Variant]string{
	Classification: "classification",
	Interpretation: "interpretation",
	Full:           "full",
}

// Variants lists every valid variant, narrowest first.
func Variants() []Variant {
	return []Variant{Classification, Interpretation, Full}
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	_, ok := variantNames[v]
	return ok
}

// Satisfies reports whether a record of variant v can answer a request for req.
func (v Variant) Satisfies(req Variant) bool {
	if !v.Valid() || !req.Valid() {
		return false
	}
	return v == Full || v == req
}

// ParseVariant parses the string form produced by String.
func ParseVariant(s string) (Variant, error) {
	for v, name := range variantNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
