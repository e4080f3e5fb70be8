package mirror_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureSnapshot(t *testing.T) {
	content := []byte("sstable content")
	path := writeFile(t, t.TempDir(), "data-1.db", content)

	snap := captureSnapshot(t, path)

	assert.Equal(t, path, snap.Path)
	assert.Equal(t, int64(len(content)), snap.Size)
	assert.Equal(t, uint32(os.Getuid()), snap.Uid)
	assert.Equal(t, uint32(os.Getgid()), snap.Gid)
}

func TestSnapshotHashForms(t *testing.T) {
	content := []byte("sstable content")
	path := writeFile(t, t.TempDir(), "data-1.db", content)

	snap := captureSnapshot(t, path)

	hex, err := snap.HashHex()
	require.NoError(t, err)
	assert.Equal(t, md5hex(content), hex)

	b64, err := snap.HashBase64()
	require.NoError(t, err)
	assert.NotEmpty(t, b64)
	assert.NotEqual(t, hex, b64)
}

func TestSnapshotHashIsMemoized(t *testing.T) {
	content := []byte("sstable content")
	path := writeFile(t, t.TempDir(), "data-1.db", content)

	snap := captureSnapshot(t, path)

	first, err := snap.HashHex()
	require.NoError(t, err)

	// the snapshot is immutable once captured: a rewrite on disk doesn't
	// change the recorded hash
	require.NoError(t, os.WriteFile(path, []byte("different"), 0644))

	second, err := snap.HashHex()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSnapshotHashVanishedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data-1.db", []byte("content"))
	snap := captureSnapshot(t, path)

	require.NoError(t, os.Remove(path))

	_, err := snap.HashHex()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotStatMetadata(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data-1.db", []byte("content"))
	snap := captureSnapshot(t, path)

	blob, err := snap.StatMetadata()
	require.NoError(t, err)

	var decoded struct {
		Uid  uint32 `json:"uid"`
		Gid  uint32 `json:"gid"`
		Mode uint32 `json:"mode"`
	}
	require.NoError(t, json.Unmarshal([]byte(blob), &decoded))

	assert.Equal(t, snap.Uid, decoded.Uid)
	assert.Equal(t, snap.Gid, decoded.Gid)
	assert.Equal(t, snap.Mode, decoded.Mode)
}
