package s3client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeS3 stores objects by path for path-style requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(body)-1, len(body)))
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestParseURI(t *testing.T) {
	bucket, key, ok := ParseURI("s3://results/run/qwen.json")
	require.True(t, ok)
	require.Equal(t, "results", bucket)
	require.Equal(t, "run/qwen.json", key)

	for _, uri := range []string{"outputs/qwen.json", "s3://bucket", "s3:///key"} {
		_, _, ok = ParseURI(uri)
		require.False(t, ok, uri)
	}
}

func TestUploadDownload(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, err := NewWithConfig(EnvironmentConfig{
		Region:      "us-east-1",
		AwsEndpoint: server.URL,
		AccessKeyID: "id",
		AccessKey:   "key",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Upload(ctx, "bucket", "refs/normalized.json", []byte(`{"0":{}}`)))
	require.Equal(t, []byte(`{"0":{}}`), fake.objects["/bucket/refs/normalized.json"])

	data, err := client.Download(ctx, "bucket", "refs/normalized.json")
	require.NoError(t, err)
	require.Equal(t, `{"0":{}}`, string(data))

	_, err = client.Download(ctx, "bucket", "missing.json")
	require.Error(t, err)
}

func TestEnvCredentialsRequired(t *testing.T) {
	_, err := NewWithConfig(EnvironmentConfig{Region: "us-east-1", AwsEndpoint: "http://localhost:1"})
	require.Error(t, err)
}
