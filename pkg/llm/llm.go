// Package llm produces receptionist replies from a composed prompt
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethanbaker/receptionist/pkg/prompt"
)

// Defaults mirror what the receptionist has been tuned with
const (
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// Generator turns a prompt into raw reply text, which may carry a booking directive
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}

// ErrorKind classifies generation failures
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindMalformed   ErrorKind = "malformed"
)

// GenerationError is returned by every Generator failure
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// classify wraps a backend error, recognising deadlines and cancellation
func classify(kind ErrorKind, err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &GenerationError{Kind: kind, Err: err}
}
