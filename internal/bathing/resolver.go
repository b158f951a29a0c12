package bathing

import (
	"context"
	"log/slog"
	"math"
)

// OutcomeKind tags what a source produced.
type OutcomeKind int

const (
	// OutcomeFailure means the source could not be reached or its payload had the wrong shape.
	OutcomeFailure OutcomeKind = iota
	// OutcomeSkip means the source answered but without a usable number.
	OutcomeSkip
	// OutcomeValue carries a reading.
	OutcomeValue
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValue:
		return "value"
	case OutcomeSkip:
		return "skip"
	default:
		return "failure"
	}
}

// Outcome is the tagged result of asking one source for a reading.
type Outcome struct {
	Kind   OutcomeKind
	Value  float64
	Reason string
	Err    error
}

// Value wraps a reading.
func Value(v float64) Outcome {
	return Outcome{Kind: OutcomeValue, Value: v}
}

// Skip reports an answer with nothing usable in it.
func Skip(reason string) Outcome {
	return Outcome{Kind: OutcomeSkip, Reason: reason}
}

// Failure reports a source that could not deliver.
func Failure(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Err: err}
}

// Source is one named place a temperature reading can come from.
type Source interface {
	Name() string
	Reading(ctx context.Context) Outcome
}

// Resolver tries its sources in order and keeps the first finite reading.
type Resolver struct {
	sources []Source
	logger  *slog.Logger
}

// NewResolver keeps sources in the given order; the order is the fallback order.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  logger.With("component", "bathing.resolver"),
	}
}

// Resolve returns the first finite reading. ok is false when every source failed or
// skipped; that is an unavailable reading, not an error.
func (r *Resolver) Resolve(ctx context.Context) (value float64, ok bool) {
	for _, src := range r.sources {
		if ctx.Err() != nil {
			break
		}

		r.logger.Debug("trying source", "source", src.Name())
		out := src.Reading(ctx)

		switch out.Kind {
		case OutcomeValue:
			if math.IsNaN(out.Value) || math.IsInf(out.Value, 0) {
				r.logger.Debug("source returned a non-finite reading", "source", src.Name(), "value", out.Value)
				continue
			}
			r.logger.Debug("source succeeded", "source", src.Name(), "value", out.Value)
			return out.Value, true
		case OutcomeSkip:
			r.logger.Debug("source returned unusable data", "source", src.Name(), "reason", out.Reason)
		default:
			r.logger.Debug("source failed", "source", src.Name(), "error", out.Err)
		}
	}

	r.logger.Info("all sources exhausted, no reading available", "sources", len(r.sources))
	return 0, false
}
