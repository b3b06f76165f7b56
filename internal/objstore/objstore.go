// Package objstore mirrors candidate data files from a Cloud Storage bucket
// into a local directory.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/spigell/profile-search/internal/logger"
)

// bucket is the part of a bucket handle the store needs.
type bucket interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Store downloads objects of a single bucket.
type Store struct {
	bucket bucket
	name   string
	close  func() error
	logger *zap.Logger
}

// New opens a Cloud Storage client for bucketName.
func New(ctx context.Context, bucketName string, log *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(bucketName) == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Storage client: %w", err)
	}

	return &Store{
		bucket: gcsBucket{handle: client.Bucket(bucketName)},
		name:   bucketName,
		close:  client.Close,
		logger: logger.OrNop(log).With(zap.String("bucket", bucketName)),
	}, nil
}

func newWithBucket(b bucket, name string, log *zap.Logger) *Store {
	return &Store{
		bucket: b,
		name:   name,
		close:  func() error { return nil },
		logger: logger.OrNop(log).With(zap.String("bucket", name)),
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.close()
}

// List returns the object names under prefix. Archives and directory
// placeholders are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.bucket.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}

	kept := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, "/") || strings.HasSuffix(strings.ToLower(name), ".zip") {
			continue
		}
		kept = append(kept, name)
	}

	s.logger.Debug("objects listed", zap.String("prefix", prefix), zap.Int("total", len(names)), zap.Int("kept", len(kept)))
	return kept, nil
}

// Download fetches every object into dir/<name>. Files already present
// locally are not fetched again. It returns the number of downloaded objects.
func (s *Store) Download(ctx context.Context, names []string, dir string) (int, error) {
	fetched := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}

		local := localPath(dir, name)
		if _, err := os.Stat(local); err == nil {
			s.logger.Debug("object already present", zap.String("object", name))
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fetched, fmt.Errorf("stat %s: %w", local, err)
		}

		if err := s.fetch(ctx, name, local); err != nil {
			return fetched, err
		}
		fetched++
	}

	s.logger.Info("objects downloaded", zap.Int("requested", len(names)), zap.Int("fetched", fetched), zap.String("dir", dir))
	return fetched, nil
}

// Sync downloads the objects under prefix into dir and returns the local
// directory that holds them.
func (s *Store) Sync(ctx context.Context, prefix, dir string) (string, error) {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return "", err
	}

	if _, err := s.Download(ctx, names, dir); err != nil {
		return "", err
	}

	return localPath(dir, prefix), nil
}

func (s *Store) fetch(ctx context.Context, name, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}

	rc, err := s.bucket.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create reader for %s: %w", name, err)
	}
	defer rc.Close()

	// Written under a temporary name so an interrupted download is not
	// mistaken for a cached file.
	tmp, err := os.CreateTemp(filepath.Dir(local), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), local)
}

// localPath maps an object name below dir. Rooting the name first keeps
// ".." segments from leaving dir.
func localPath(dir, name string) string {
	return filepath.Join(dir, filepath.Clean(filepath.FromSlash("/"+name)))
}

type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b gcsBucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.handle.Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (b gcsBucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return b.handle.Object(name).NewReader(ctx)
}
