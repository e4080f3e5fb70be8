package mirror_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/mirror"
	"github.com/studio1767/s3mirror/internal/s3io"
)

func ampleMemory() (uint64, error) {
	return 1 << 40, nil
}

func newExecutor(t *testing.T, namer *mirror.Namer, opts mirror.ExecutorOptions, chunkSize int64, log logging.Logger) *mirror.Executor {
	t.Helper()
	if opts.Predicate == nil {
		pred, err := mirror.NewPredicate("", "")
		require.NoError(t, err)
		opts.Predicate = pred
	}
	planner := mirror.NewPlanner(chunkSize, ampleMemory, log)
	return mirror.NewExecutor(namer, planner, opts, log)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestMonolithicUploadSmallFile(t *testing.T) {
	content := []byte("small sstable")

	store := newFakeStore()
	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	dir := t.TempDir()
	path := writeFile(t, dir, "data-1.db", content)
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 1 << 20}, 1<<20, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, key, snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUploaded, outcome)

	obj := store.object(key)
	require.NotNil(t, obj)
	assert.Equal(t, content, obj.data)

	// at or below the 1 MiB threshold stays in the standard tier
	assert.Equal(t, s3io.StorageStandard, obj.storageClass)

	// ownership and hash metadata travel with the object
	assert.Equal(t, md5hex(content), obj.metadata[mirror.MetaHash])
	assert.Contains(t, obj.metadata[mirror.MetaStat], "\"uid\"")
}

func TestMonolithicUploadInfrequentAccessTier(t *testing.T) {
	content := randomBytes(t, 2*1024*1024)

	store := newFakeStore()
	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-2.db", content)
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	// well under the monolithic ceiling but over the tier threshold
	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 100 << 20}, 8<<20, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, key, snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUploaded, outcome)

	obj := store.object(key)
	require.NotNil(t, obj)
	assert.Equal(t, s3io.StorageInfrequent, obj.storageClass)
}

func TestMultipartUploadPartSequence(t *testing.T) {
	content := randomBytes(t, 200)

	store := newFakeStore()
	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-3.db", content)
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	// 200 bytes over a 64 byte chunk: parts of 64, 64, 64, 8
	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 100}, 64, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, key, snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUploaded, outcome)

	obj := store.object(key)
	require.NotNil(t, obj)
	assert.Equal(t, content, obj.data)
	assert.Equal(t, []int32{1, 2, 3, 4}, obj.parts)
}

func TestMultipartPartFailureAbortsAndEscalates(t *testing.T) {
	content := randomBytes(t, 200)

	store := newFakeStore()
	store.failPart = 1000 // every part attempt fails

	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-4.db", content)
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 100}, 64, testLogger())

	_, err := ex.Upload(context.Background(), sess, key, snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")

	// every failed attempt cancelled its session
	assert.Equal(t, 3, store.aborted)
	assert.Nil(t, store.object(key))
}

func TestUploadVanishedSourceSkips(t *testing.T) {
	store := newFakeStore()
	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-5.db", []byte("content"))
	snap := captureSnapshot(t, path)
	require.NoError(t, os.Remove(path))

	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 1 << 20}, 1<<20, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, namer.Key(path), snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeSkippedMissing, outcome)
}

func TestUploadRetriesTransientPutFailures(t *testing.T) {
	content := []byte("content")

	store := newFakeStore()
	store.failPut = 2

	connector := &fakeConnector{store: store}
	sess := mirror.NewSession(connector, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-6.db", content)
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 1 << 20}, 1<<20, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, key, snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUploaded, outcome)
	assert.Equal(t, content, store.object(key).data)
	assert.Greater(t, connector.connects, 1)
}

func TestUploadExhaustedRetriesAreFatal(t *testing.T) {
	store := newFakeStore()
	store.failPut = 1000

	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	path := writeFile(t, t.TempDir(), "data-7.db", []byte("content"))
	snap := captureSnapshot(t, path)

	ex := newExecutor(t, namer, mirror.ExecutorOptions{MaxUploadSize: 1 << 20}, 1<<20, testLogger())

	_, err := ex.Upload(context.Background(), sess, namer.Key(path), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestIndexesUploadedBeforeContent(t *testing.T) {
	content := []byte("content")

	store := newFakeStore()
	sess := mirror.NewSession(&fakeConnector{store: store}, 3, testLogger())
	namer := mirror.NewNamer("", "host1", ":")

	dir := t.TempDir()
	path := writeFile(t, dir, "data-8.db", content)
	writeFile(t, dir, "data-8-tmp", []byte("ignored"))
	snap := captureSnapshot(t, path)
	key := namer.Key(path)

	ex := newExecutor(t, namer, mirror.ExecutorOptions{
		MaxUploadSize:   1 << 20,
		WithIndex:       true,
		WithGlobalIndex: true,
		Roots:           []string{dir},
	}, 1<<20, testLogger())

	outcome, err := ex.Upload(context.Background(), sess, key, snap)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUploaded, outcome)

	// both auxiliary objects arrived, directory index first
	require.Equal(t, []string{namer.DirIndexKey(path), namer.GlobalIndexKey(path)}, store.auxKeys)

	dirIndex := store.object(namer.DirIndexKey(path))
	require.NotNil(t, dirIndex)
	assert.Equal(t, "application/json", dirIndex.contentType)

	var listing map[string][]string
	require.NoError(t, json.Unmarshal(dirIndex.data, &listing))
	assert.Equal(t, []string{"data-8.db"}, listing[dir])

	globalIndex := store.object(namer.GlobalIndexKey(path))
	require.NotNil(t, globalIndex)
	assert.Equal(t, "text/plain", globalIndex.contentType)
	assert.True(t, bytes.Contains(globalIndex.data, []byte(path)))
}
