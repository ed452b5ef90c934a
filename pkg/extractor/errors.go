// pkg/extractor/errors.go
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/lib/pq"
)

// ErrorKind classifies why an extraction failed
type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindTransient     ErrorKind = "transient"
	KindDecode        ErrorKind = "decode"
	KindUnknown       ErrorKind = "unknown"
)

// ExtractionError is returned by every extractor when a source could not be read
type ExtractionError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction from %s failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether trying again later could succeed
func (e *ExtractionError) Retryable() bool {
	return e.Kind == KindTransient
}

func newExtractionError(source string, kind ErrorKind, err error) *ExtractionError {
	return &ExtractionError{Source: source, Kind: kind, Err: err}
}

// KindOf returns the kind of the first ExtractionError in err's chain,
// or KindUnknown when there is none
func KindOf(err error) ErrorKind {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Kind
	}
	return KindUnknown
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthorization
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// classifyTransportError handles failures common to every network source
func classifyTransportError(err error) (ErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient, true
	}
	return "", false
}

// classifyAWSError maps S3 error codes onto extraction kinds
func classifyAWSError(err error) ErrorKind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return KindNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "InvalidToken", "AllAccessDisabled", "Forbidden":
			return KindAuthorization
		case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
			return KindTransient
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if kind := kindForStatus(respErr.HTTPStatusCode()); kind != KindUnknown {
			return kind
		}
	}

	// the SDK reports a missing credential chain as a plain wrapped error
	if strings.Contains(err.Error(), "failed to retrieve credentials") {
		return KindAuthorization
	}

	if kind, ok := classifyTransportError(err); ok {
		return kind
	}
	return KindUnknown
}

// classifySQLError maps PostgreSQL error classes onto extraction kinds
func classifySQLError(err error) ErrorKind {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28":
			return KindAuthorization
		case "42":
			if pqErr.Code == "42P01" {
				return KindNotFound
			}
			if pqErr.Code == "42501" {
				return KindAuthorization
			}
		case "08", "53", "57":
			return KindTransient
		}
	}
	if kind, ok := classifyTransportError(err); ok {
		return kind
	}
	return KindUnknown
}
