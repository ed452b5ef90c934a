package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{http.StatusUnauthorized, KindAuthorization},
		{http.StatusForbidden, KindAuthorization},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusBadRequest, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, kindForStatus(tt.code))
		})
	}
}

func TestClassifyAWSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "no such bucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, want: KindNotFound},
		{name: "access denied", err: fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "AccessDenied"}), want: KindAuthorization},
		{name: "slow down", err: &smithy.GenericAPIError{Code: "SlowDown"}, want: KindTransient},
		{name: "missing credentials", err: errors.New("get identity: get credentials: failed to refresh cached credentials, failed to retrieve credentials"), want: KindAuthorization},
		{name: "deadline", err: fmt.Errorf("request: %w", context.DeadlineExceeded), want: KindTransient},
		{name: "other", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyAWSError(tt.err))
		})
	}
}

func TestClassifySQLError(t *testing.T) {
	assert.Equal(t, KindNotFound, classifySQLError(&pq.Error{Code: "42P01"}))
	assert.Equal(t, KindAuthorization, classifySQLError(&pq.Error{Code: "28P01"}))
	assert.Equal(t, KindAuthorization, classifySQLError(&pq.Error{Code: "42501"}))
	assert.Equal(t, KindTransient, classifySQLError(&pq.Error{Code: "08006"}))
	assert.Equal(t, KindUnknown, classifySQLError(&pq.Error{Code: "22P02"}))
	assert.Equal(t, KindUnknown, classifySQLError(errors.New("boom")))
}

func TestExtractionError(t *testing.T) {
	cause := errors.New("gone")
	err := fmt.Errorf("job users: %w", newExtractionError("s3://b/k", KindNotFound, cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(cause))
	assert.Contains(t, err.Error(), "extraction from s3://b/k failed (not_found): gone")

	var extErr *ExtractionError
	if assert.ErrorAs(t, err, &extErr) {
		assert.False(t, extErr.Retryable())
	}
	assert.True(t, newExtractionError("x", KindTransient, cause).Retryable())
}
