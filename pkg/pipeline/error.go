package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
)

// Stage is the step of a job at which an error occurred
type Stage string

const (
	StageExtract Stage = "extract"
	StageClean   Stage = "clean"
	StageLoad    Stage = "load"
	StageVerify  Stage = "verify"
)

// StageError wraps a job failure with the stage it happened in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageExtract:
		return fmt.Sprintf("extraction failed: %v", e.Err)
	case StageLoad:
		return fmt.Sprintf("load failed: %v", e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err's chain, or "" when there is none
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// ErrorCategory defines categories of job failures
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryAuthorization
	ErrorCategoryNotFound
	ErrorCategoryTransient
	ErrorCategoryDecode
	ErrorCategoryConfiguration
	ErrorCategoryCleaning
	ErrorCategoryLoad
	ErrorCategoryVerification
	ErrorCategoryCancelled
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryAuthorization:
		return "Authorization"
	case ErrorCategoryNotFound:
		return "NotFound"
	case ErrorCategoryTransient:
		return "Transient"
	case ErrorCategoryDecode:
		return "Decode"
	case ErrorCategoryConfiguration:
		return "Configuration"
	case ErrorCategoryCleaning:
		return "Cleaning"
	case ErrorCategoryLoad:
		return "Load"
	case ErrorCategoryVerification:
		return "Verification"
	case ErrorCategoryCancelled:
		return "Cancelled"
	case ErrorCategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// CategorizeError determines the category of a job error from its typed chain
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCategoryCancelled
	case errors.Is(err, cleaner.ErrUnknownEntity), errors.Is(err, errNoExtractor):
		return ErrorCategoryConfiguration
	}

	var extErr *extractor.ExtractionError
	if errors.As(err, &extErr) {
		switch extErr.Kind {
		case extractor.KindAuthorization:
			return ErrorCategoryAuthorization
		case extractor.KindNotFound:
			return ErrorCategoryNotFound
		case extractor.KindTransient:
			return ErrorCategoryTransient
		case extractor.KindDecode:
			return ErrorCategoryDecode
		}
	}

	switch StageOf(err) {
	case StageClean:
		return ErrorCategoryCleaning
	case StageLoad:
		return ErrorCategoryLoad
	case StageVerify:
		return ErrorCategoryVerification
	}
	return ErrorCategoryUnknown
}

// IsRetryableError reports whether a failed extraction may succeed on retry
func IsRetryableError(err error) bool {
	var extErr *extractor.ExtractionError
	return errors.As(err, &extErr) && extErr.Retryable()
}
