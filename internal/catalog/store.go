package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
)

// Store loads a catalog snapshot.
type Store interface {
	Name() string
	Load(ctx context.Context) (*Snapshot, error)
}

// FileStore reads a JSON or YAML catalog from disk.
type FileStore struct {
	Path string
}

func (s *FileStore) Name() string { return "file:" + s.Path }

func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, FormatFromPath(s.Path))
}

// Opener reads objects by key; satisfied by the object stores.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectStore reads a catalog file from object storage (S3 or local).
type ObjectStore struct {
	Objects Opener
	Key     string
}

func (s *ObjectStore) Name() string { return "object:" + s.Key }

func (s *ObjectStore) Load(ctx context.Context) (*Snapshot, error) {
	rc, err := s.Objects.Open(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("open catalog object %s: %w", s.Key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read catalog object %s: %w", s.Key, err)
	}
	return Parse(data, FormatFromPath(s.Key))
}

//go:embed defaults/catalog.yaml
var defaultCatalog []byte

// EmbeddedStore serves the catalog bundled with the binary.
type EmbeddedStore struct{}

func (EmbeddedStore) Name() string { return "embedded" }

func (EmbeddedStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(defaultCatalog, FormatYAML)
}

// StaticStore serves a fixed snapshot; useful for tests and the CLI.
type StaticStore struct {
	Snapshot *Snapshot
}

func (s StaticStore) Name() string { return "static" }

func (s StaticStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Snapshot, nil
}
