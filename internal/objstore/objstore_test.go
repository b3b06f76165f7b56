package objstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBucket struct {
	objects map[string]string
	order   []string
	opened  []string
	listErr error
}

func newFakeBucket(objects ...string) *fakeBucket {
	b := &fakeBucket{objects: map[string]string{}}
	for i := 0; i+1 < len(objects); i += 2 {
		b.objects[objects[i]] = objects[i+1]
		b.order = append(b.order, objects[i])
	}
	return b
}

func (b *fakeBucket) List(_ context.Context, prefix string) ([]string, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	var names []string
	for _, name := range b.order {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (b *fakeBucket) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := b.objects[name]
	if !ok {
		return nil, errors.New("object doesn't exist")
	}
	b.opened = append(b.opened, name)
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestListSkipsArchivesAndPlaceholders(t *testing.T) {
	b := newFakeBucket(
		"data/", "",
		"data/cv_1.txt", "cv one",
		"data/backup.ZIP", "zip",
		"data/linkedin_profiles.json", "[]",
		"other/cv_9.txt", "elsewhere",
	)

	names, err := newWithBucket(b, "test", zap.NewNop()).List(context.Background(), "data/")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/cv_1.txt", "data/linkedin_profiles.json"}, names)
}

func TestListWrapsBucketError(t *testing.T) {
	b := newFakeBucket()
	b.listErr = errors.New("permission denied")

	_, err := newWithBucket(b, "test", nil).List(context.Background(), "data/")
	require.Error(t, err)
	assert.ErrorIs(t, err, b.listErr)
}

func TestDownloadSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	b := newFakeBucket(
		"data/cv_1.txt", "remote cv one",
		"data/cv_2.txt", "remote cv two",
	)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "cv_1.txt"), []byte("local cv one"), 0o644))

	store := newWithBucket(b, "test", nil)
	fetched, err := store.Download(context.Background(), []string{"data/cv_1.txt", "data/cv_2.txt"}, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, []string{"data/cv_2.txt"}, b.opened)

	local, err := os.ReadFile(filepath.Join(dir, "data", "cv_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "local cv one", string(local))

	remote, err := os.ReadFile(filepath.Join(dir, "data", "cv_2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remote cv two", string(remote))

	fetched, err = store.Download(context.Background(), []string{"data/cv_2.txt"}, dir)
	require.NoError(t, err)
	assert.Zero(t, fetched)
}

func TestDownloadKeepsObjectsInsideDir(t *testing.T) {
	dir := t.TempDir()
	b := newFakeBucket("../escape.txt", "nope")

	_, err := newWithBucket(b, "test", nil).Download(context.Background(), []string{"../escape.txt"}, dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}

func TestDownloadFailureLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()

	_, err := newWithBucket(newFakeBucket(), "test", nil).Download(context.Background(), []string{"data/missing.txt"}, dir)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "data", "missing.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	b := newFakeBucket(
		"data/cv_1.txt", "cv one",
		"data/interview_1.txt", "interview one",
		"data/all.zip", "zip",
	)

	local, err := newWithBucket(b, "test", nil).Sync(context.Background(), "data/", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), local)

	entries, err := os.ReadDir(local)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"cv_1.txt", "interview_1.txt"}, names)
}

func TestSyncHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newFakeBucket("data/cv_1.txt", "cv one")
	_, err := newWithBucket(b, "test", nil).Sync(ctx, "data/", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
