package pipeline

import (
	"errors"

	"scribe/internal/queue"
	"scribe/internal/services"
)

// FailureKind classifies why a stage execution failed, driving the worker's
// retry decision.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureTransient    FailureKind = "transient"
	FailureValidation   FailureKind = "validation"
	FailureNotFound     FailureKind = "not_found"
	FailureExternalTool FailureKind = "external_tool"
	FailureMalformed    FailureKind = "malformed"
	FailureInternal     FailureKind = "internal"
)

func classifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return FailureValidation
	case errors.Is(err, services.ErrNotFound):
		return FailureNotFound
	case errors.Is(err, services.ErrMalformed):
		return FailureMalformed
	case errors.Is(err, services.ErrExternalTool):
		return FailureExternalTool
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrTimeout):
		return FailureTransient
	default:
		return FailureInternal
	}
}

// Result reports the outcome of one stage execution.
type Result struct {
	Stage   queue.Stage
	VideoID int64
	TaskID  int64
	Kind    FailureKind
	Err     error
}

// Failed reports whether the execution ended in an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Retryable reports whether the failure is transient enough that rerunning
// the same stage could succeed.
func (r Result) Retryable() bool {
	return r.Kind == FailureTransient
}
