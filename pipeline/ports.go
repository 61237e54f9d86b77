//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

package pipeline

import (
	"context"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/imaging"
)

// Upload is one request's image. Only Content takes part in identity;
// MediaType guides decoding and Filename is for logs.
type Upload struct {
	Content   []byte
	MediaType string
	Filename  string
}

// Decoder turns raw upload bytes into a model-ready tensor.
//
// Contract:
//   - Errors: wraps imaging.ErrUndecodable or imaging.ErrUnsupportedSize.
//   - Concurrency: safe for concurrent use.
type Decoder interface {
	Normalize(ctx context.Context, content []byte, mediaType string) (imaging.Tensor, error)
}

// Model predicts the dementia-stage distribution for a tensor.
//
// Contract:
//   - Output: one probability per analysis.Labels entry, in label order.
//   - Concurrency: safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, t imaging.Tensor) (analysis.Probabilities, error)
}

// Explainer produces the two explanations shown with an interpretation.
//
// Contract:
//   - Saliency: values in [0,1], one per pixel of the returned map.
//   - Attribution: features ranked by the explainer; the image is optional.
//   - Concurrency: safe for concurrent use.
type Explainer interface {
	Saliency(ctx context.Context, t imaging.Tensor) (imaging.SaliencyMap, error)
	Attribution(ctx context.Context, t imaging.Tensor) (analysis.Explanation, error)
}
