package pipeline_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/imaging"
	"github.com/jonwraymond/neuroscan/pipeline"
)

type fixedModel struct{ calls int }

func (m *fixedModel) Predict(context.Context, imaging.Tensor) (analysis.Probabilities, error) {
	m.calls++
	return analysis.Probabilities{0.05, 0.02, 0.875, 0.055}, nil
}

type flatExplainer struct{}

func (flatExplainer) Saliency(context.Context, imaging.Tensor) (imaging.SaliencyMap, error) {
	return imaging.SaliencyMap{Width: 1, Height: 1, Values: []float64{0.5}}, nil
}

func (flatExplainer) Attribution(context.Context, imaging.Tensor) (analysis.Explanation, error) {
	return analysis.Explanation{Features: []analysis.Feature{{Segment: 4, Weight: 0.3}}}, nil
}

type anyBytesDecoder struct{}

func (anyBytesDecoder) Normalize(context.Context, []byte, string) (imaging.Tensor, error) {
	return imaging.Tensor{Width: 1, Height: 1, Channels: 3, Data: []float32{0, 0, 0}}, nil
}

func ExampleOrchestrator_Analyze() {
	model := &fixedModel{}
	orch, err := pipeline.New(pipeline.Options{
		Decoder:   anyBytesDecoder{},
		Model:     model,
		Explainer: flatExplainer{},
	})
	if err != nil {
		panic(err)
	}

	scan := pipeline.Upload{Content: []byte("scan bytes"), Filename: "scan.png"}
	full, _ := orch.Analyze(context.Background(), scan)
	fmt.Println(full.Classification.ClassName, full.Interpretation.Severity)

	// Served from the stored full analysis.
	c, _ := orch.Classify(context.Background(), scan)
	fmt.Printf("%s %.3f model calls: %d\n", c.ClassName, c.Confidence, model.calls)
	// Output:
	// NonDemented moderate
	// NonDemented 0.875 model calls: 1
}

func ExampleNormalize() {
	err := pipeline.Normalize(pipeline.StageDecode, errors.New("unexpected EOF"))
	fmt.Println(err.Kind)
	fmt.Println(err)
	// Output:
	// invalid_content
	// pipeline: decode: invalid_content: unexpected EOF
}
