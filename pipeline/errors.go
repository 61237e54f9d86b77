package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/imaging"
	"github.com/jonwraymond/neuroscan/resilience"
)

// ErrorKind is the closed set of failure categories a request can end in.
type ErrorKind int

const (
	Internal ErrorKind = iota
	InvalidContent
	UnsupportedSize
	ModelFailure
	ExplainerFailure
	StoreUnavailable
)

var kindNames = map[ErrorKind]string{
	Internal:         "internal",
	InvalidContent:   "invalid_content",
	UnsupportedSize:  "unsupported_size",
	ModelFailure:     "model_failure",
	ExplainerFailure: "explainer_failure",
	StoreUnavailable: "store_unavailable",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// Stage names a step of the pipeline. It selects the error kind for
// failures that do not carry one.
type Stage string

const (
	StageKey         Stage = "key"
	StageLookup      Stage = "lookup"
	StageWait        Stage = "wait"
	StageCompute     Stage = "compute"
	StageDecode      Stage = "decode"
	StagePredict     Stage = "predict"
	StageSaliency    Stage = "saliency"
	StageAttribution Stage = "attribution"
	StageAssemble    Stage = "assemble"
	StageStore       Stage = "store"
)

// Error is the only error type returned by Orchestrator methods.
type Error struct {
	Kind ErrorKind
	Op   Stage
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("pipeline: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Label implements observe.LabeledError.
func (e *Error) Label() string { return e.Kind.String() }

// ErrorKind implements Kinded.
func (e *Error) ErrorKind() ErrorKind { return e.Kind }

// Kinded is implemented by collaborator errors that already know their
// category.
type Kinded interface {
	ErrorKind() ErrorKind
}

// KindOf returns the kind carried by err, or Internal.
func KindOf(err error) ErrorKind {
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return Internal
}

// Normalize maps any failure raised during stage to exactly one kind.
// It returns nil for a nil err.
func Normalize(stage Stage, err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	var k Kinded
	if errors.As(err, &k) {
		return &Error{Kind: k.ErrorKind(), Op: stage, Err: err}
	}

	return &Error{Kind: classify(stage, err), Op: stage, Err: err}
}

func classify(stage Stage, err error) ErrorKind {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, resilience.ErrBulkheadFull),
		errors.Is(err, resilience.ErrPanic):
		return Internal
	case errors.Is(err, context.DeadlineExceeded):
		// An overrun charges the collaborator that was running.
		switch stage {
		case StagePredict:
			return ModelFailure
		case StageSaliency, StageAttribution:
			return ExplainerFailure
		}
		return Internal
	}

	switch stage {
	case StageKey:
		if errors.Is(err, cache.ErrEmptyContent) {
			return InvalidContent
		}
	case StageDecode:
		if errors.Is(err, imaging.ErrUnsupportedSize) {
			return UnsupportedSize
		}
		return InvalidContent
	case StagePredict:
		return ModelFailure
	case StageSaliency, StageAttribution:
		return ExplainerFailure
	case StageStore, StageLookup:
		return StoreUnavailable
	case StageAssemble:
		if errors.Is(err, analysis.ErrInvalidProbabilities) {
			return ModelFailure
		}
	}
	return Internal
}

// normalize is Normalize with a nil-safe error result.
func normalize(stage Stage, err error) error {
	if pe := Normalize(stage, err); pe != nil {
		return pe
	}
	return nil
}
