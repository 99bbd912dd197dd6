package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/fiber"
)

// RuntimeError is a failed pass.
//
// Runtime errors include:
//   - Render failed: a component's render returned an error
//   - Unimplemented: a component definition has no render capability
//   - Render panic: a component's render panicked
//   - Quota exceeded: the pass processed more units than allowed
//
// The pass is discarded; the scheduler keeps running.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// PassID identifies the failed pass.
	PassID string

	// Component names the component involved, if any.
	Component string

	// Path is the child-index path of the failing unit, if known.
	Path string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRenderFailed indicates a render returned an error.
	ErrCodeRenderFailed RuntimeErrorCode = "RENDER_FAILED"

	// ErrCodeUnimplemented indicates a definition without render capability.
	ErrCodeUnimplemented RuntimeErrorCode = "UNIMPLEMENTED"

	// ErrCodeRenderPanic indicates a render panicked.
	ErrCodeRenderPanic RuntimeErrorCode = "RENDER_PANIC"

	// ErrCodeQuotaExceeded indicates the pass exceeded its unit quota.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownInstance indicates a request from an instance that is
	// not part of any committed tree.
	ErrCodeUnknownInstance RuntimeErrorCode = "UNKNOWN_INSTANCE"
)

// KnownErrorCode reports whether code names a RuntimeErrorCode.
func KnownErrorCode(code string) bool {
	switch RuntimeErrorCode(code) {
	case ErrCodeRenderFailed, ErrCodeUnimplemented, ErrCodeRenderPanic,
		ErrCodeQuotaExceeded, ErrCodeUnknownInstance:
		return true
	}
	return false
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Component != "" && e.PassID != "" {
		return fmt.Sprintf("%s: %s (pass=%s, component=%s)", e.Code, e.Message, e.PassID, e.Component)
	}
	if e.PassID != "" {
		return fmt.Sprintf("%s: %s (pass=%s)", e.Code, e.Message, e.PassID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsRenderError reports whether err is a failed, unimplemented or
// panicking render. Uses errors.As to handle wrapped errors.
func IsRenderError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		switch re.Code {
		case ErrCodeRenderFailed, ErrCodeUnimplemented, ErrCodeRenderPanic:
			return true
		}
	}
	return false
}

// IsQuotaError reports whether err is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and UnitsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var ue *UnitsExceededError
	return errors.As(err, &ue)
}

// NewQuotaError wraps the error a UnitQuota returned for the pass.
func NewQuotaError(passID string, cause error) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: cause.Error(),
		PassID:  passID,
		Err:     cause,
	}
	var ue *UnitsExceededError
	if errors.As(cause, &ue) {
		re.Message = fmt.Sprintf("pass exceeded max units (%d > %d)", ue.Units, ue.Limit)
	}
	return re
}

// newRenderError classifies a builder error.
func newRenderError(passID string, err error) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeRenderFailed,
		Message: err.Error(),
		PassID:  passID,
		Err:     err,
	}
	var rerr *fiber.RenderError
	if errors.As(err, &rerr) {
		re.Component = rerr.Component
		re.Path = rerr.Path
		if rerr.Panic != nil {
			re.Code = ErrCodeRenderPanic
		}
	}
	if errors.Is(err, element.ErrUnimplemented) {
		re.Code = ErrCodeUnimplemented
	}
	return re
}
