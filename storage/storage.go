package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/s3client"
)

var ErrNoObjectStore = errors.New("s3 uri given but no s3 client is configured")

var storageLogger = logger.NewLogger("Storage")

type Store interface {
	ReadFile(ctx context.Context, uri string) ([]byte, error)
	WriteFile(ctx context.Context, uri string, data []byte) error
}

// ObjectStore is satisfied by *s3client.Client.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

type router struct {
	objects ObjectStore
}

// New returns a Store that sends s3:// URIs to objects and everything else
// to the local filesystem. objects may be nil.
func New(objects ObjectStore) Store {
	return &router{objects: objects}
}

func (r *router) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	if bucket, key, ok := s3client.ParseURI(uri); ok {
		if r.objects == nil {
			return nil, ErrNoObjectStore
		}
		return r.objects.Download(ctx, bucket, key)
	}
	return os.ReadFile(uri)
}

func (r *router) WriteFile(ctx context.Context, uri string, data []byte) error {
	if bucket, key, ok := s3client.ParseURI(uri); ok {
		if r.objects == nil {
			return ErrNoObjectStore
		}
		return r.objects.Upload(ctx, bucket, key, data)
	}
	if dir := filepath.Dir(uri); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	storageLogger.Debug().Str("path", uri).Int("bytes", len(data)).Msg("Writing file")
	return os.WriteFile(uri, data, 0o644)
}

// Join appends name to a local directory or an s3:// prefix.
func Join(base, name string) string {
	if strings.HasPrefix(base, s3client.Scheme) {
		return s3client.Scheme + path.Join(strings.TrimPrefix(base, s3client.Scheme), name)
	}
	return filepath.Join(base, name)
}

// MarshalJSON renders v with a four space indent and no HTML escaping.
func MarshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func WriteJSON(ctx context.Context, store Store, uri string, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", uri, err)
	}
	if err = store.WriteFile(ctx, uri, data); err != nil {
		return fmt.Errorf("write %s: %w", uri, err)
	}
	return nil
}

func ReadJSON(ctx context.Context, store Store, uri string, v interface{}) error {
	data, err := store.ReadFile(ctx, uri)
	if err != nil {
		return fmt.Errorf("read %s: %w", uri, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", uri, err)
	}
	return nil
}
