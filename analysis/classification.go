package analysis

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// NumClasses is the width of the model's output vector.
const NumClasses = 4

// Labels are the dementia stages in model output order.
var Labels = [NumClasses]string{
	"MildDemented",
	"ModerateDemented",
	"NonDemented",
	"VeryMildDemented",
}

// probabilityTolerance bounds how far the vector sum may drift from 1.
const probabilityTolerance = 1e-3

// Probabilities is the model's class distribution, indexed like Labels.
type Probabilities [NumClasses]float64

// Validate checks that every value is a finite number in [0,1] and that
// the vector sums to 1 within tolerance.
func (p Probabilities) Validate() error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidProbabilities, Labels[i], v)
		}
	}
	if sum := lo.Sum(p[:]); math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: sum=%v", ErrInvalidProbabilities, sum)
	}
	return nil
}

// Argmax returns the index of the largest probability. Ties go to the
// lowest index.
func (p Probabilities) Argmax() int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

// LabelIndex returns the position of name in Labels, or -1.
func LabelIndex(name string) int {
	return lo.IndexOf(Labels[:], name)
}

// ClassificationResult is the predicted stage and its distribution.
type ClassificationResult struct {
	ClassName     string             `json:"class_name"`
	Confidence    float64            `json:"confidence"`
	ClassID       int                `json:"class_id"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// NewClassification validates p and derives the predicted class.
func NewClassification(p Probabilities) (ClassificationResult, error) {
	if err := p.Validate(); err != nil {
		return ClassificationResult{}, err
	}
	id := p.Argmax()
	probs := make(map[string]float64, NumClasses)
	for i, label := range Labels {
		probs[label] = p[i]
	}
	return ClassificationResult{
		ClassName:     Labels[id],
		Confidence:    p[id],
		ClassID:       id,
		Probabilities: probs,
	}, nil
}

// Vector returns the probabilities back in label order.
func (c ClassificationResult) Vector() Probabilities {
	var p Probabilities
	for i, label := range Labels {
		p[i] = c.Probabilities[label]
	}
	return p
}
