package source_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/source"
)

// fakeS3 serves path-style ListObjectsV2 and GetObject for one bucket.
func fakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket)
		key = strings.TrimPrefix(key, "/")

		if key == "" && r.URL.Query().Get("list-type") == "2" {
			prefix := r.URL.Query().Get("prefix")

			var b strings.Builder

			b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
			b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
			fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix>", bucket, prefix)
			b.WriteString("<IsTruncated>false</IsTruncated>")

			for k, v := range objects {
				rest, ok := strings.CutPrefix(k, prefix)
				if !ok || strings.Contains(rest, "/") {
					continue
				}

				fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(v))
			}

			b.WriteString("</ListBucketResult>")

			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(b.String()))

			return
		}

		body, ok := objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`))

			return
		}

		_, _ = w.Write([]byte(body))
	}))
}

func setupS3Reader(t *testing.T, prefix string, objects map[string]string) source.Reader {
	t.Helper()

	srv := fakeS3(t, "its", objects)
	t.Cleanup(srv.Close)

	return source.NewS3Reader(&config.S3SourceConfig{
		Enabled:         true,
		EndpointURL:     srv.URL,
		Region:          "us-east-1",
		Bucket:          "its",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		ForcePathStyle:  true,
		Prefix:          prefix,
	})
}

func TestS3Reader_List(t *testing.T) {
	reader := setupS3Reader(t, "/exports/", map[string]string{
		"exports/b.json":     "[]",
		"exports/a.json.gz":  "x",
		"exports/readme.txt": "x",
		"exports/old/c.json": "[]",
		"elsewhere/d.json":   "[]",
	})

	names, err := reader.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json.gz", "b.json"}, names)
}

func TestS3Reader_Get(t *testing.T) {
	reader := setupS3Reader(t, "exports", map[string]string{
		"exports/runs.json": `[{"timestamp":"1"}]`,
	})

	ctx := context.Background()

	data, err := reader.Get(ctx, "runs.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"timestamp":"1"}]`, string(data))

	data, err = reader.Get(ctx, "missing.json")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = reader.Get(ctx, "old/c.json")
	require.ErrorIs(t, err, source.ErrInvalidName)
}
