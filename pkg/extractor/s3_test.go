package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/sales-ingress/pkg/config"
)

const s3ErrorBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>test</Message><RequestId>1</RequestId></Error>`

func newS3Server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data-handling-public/products.csv":
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, ",product_name,weight\n0,Lamp,1.6kg\n")
		case "/data-handling-public/date_details.json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"month": {"0": "9"}, "date_uuid": {"0": "40d2a2e1-9bbd-4fd7-a1fc-6a3c49c43e0c"}}`)
		case "/data-handling-public/broken.json":
			fmt.Fprint(w, `{"month": `)
		case "/private/products.csv":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, s3ErrorBody, "AccessDenied")
		case "/missing-bucket/products.csv":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, s3ErrorBody, "NoSuchBucket")
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, s3ErrorBody, "NoSuchKey")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestS3Extractor(t *testing.T, srv *httptest.Server) *S3Extractor {
	client := s3.New(s3.Options{
		Region:           "eu-west-1",
		Credentials:      credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint:     aws.String(srv.URL),
		UsePathStyle:     true,
		RetryMaxAttempts: 1,
	})
	return NewS3ExtractorWithClient(client, zaptest.NewLogger(t))
}

func TestS3Extractor_Extract(t *testing.T) {
	srv := newS3Server(t)
	e := newTestS3Extractor(t, srv)

	products, err := e.Extract(context.Background(), "s3://data-handling-public/products.csv", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Unnamed: 0", "product_name", "weight"}, products.Columns())
	assert.Equal(t, "1.6kg", products.Value(0, "weight"))

	dates, err := e.Extract(context.Background(),
		"https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"date_uuid", "month"}, dates.Columns())
	assert.Equal(t, "9", dates.Value(0, "month"))
}

func TestS3Extractor_ExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want ErrorKind
	}{
		{name: "missing key", uri: "s3://data-handling-public/nope.csv", want: KindNotFound},
		{name: "missing bucket", uri: "s3://missing-bucket/products.csv", want: KindNotFound},
		{name: "access denied", uri: "s3://private/products.csv", want: KindAuthorization},
		{name: "undecodable", uri: "s3://data-handling-public/broken.json", want: KindDecode},
		{name: "bad uri", uri: "ftp://data-handling-public/products.csv", want: KindNotFound},
	}

	srv := newS3Server(t)
	e := newTestS3Extractor(t, srv)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.uri, "")
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestNewS3Extractor(t *testing.T) {
	srv := newS3Server(t)
	e, err := NewS3Extractor(context.Background(), config.S3Config{
		Region:       "eu-west-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		Anonymous:    true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tbl, err := e.Extract(context.Background(), "s3://data-handling-public/products.csv", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri        string
		bucket     string
		key        string
		shouldFail bool
	}{
		{uri: "s3://data-handling-public/products.csv", bucket: "data-handling-public", key: "products.csv"},
		{uri: "s3://bucket/nested/path/file.json", bucket: "bucket", key: "nested/path/file.json"},
		{uri: "https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json", bucket: "data-handling-public", key: "date_details.json"},
		{uri: "https://s3.eu-west-1.amazonaws.com/bucket/key.csv", bucket: "bucket", key: "key.csv"},
		{uri: "s3://bucket/", shouldFail: true},
		{uri: "s3:///key", shouldFail: true},
		{uri: "https://example.com/file.csv", shouldFail: true},
		{uri: "gs://bucket/key", shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.shouldFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}
