package mirror

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// Snapshot captures a file's identity at the start of an upload attempt.
// It is owned by a single worker and never shared. The content hash is
// computed on first use and memoized; if the file changes on disk after
// capture, the resulting mismatch is an accepted race.
type Snapshot struct {
	Path string
	Size int64

	Uid  uint32
	Gid  uint32
	Mode uint32

	// resolved on a best-effort basis; empty when the id has no name
	User  string
	Group string

	digest []byte
}

// CaptureSnapshot records the stat information for path. The hash is left
// for later so the existence check can skip reading the file entirely.
func CaptureSnapshot(path string, fi os.FileInfo) *Snapshot {
	snap := Snapshot{
		Path: path,
		Size: fi.Size(),
		Mode: uint32(fi.Mode()),
	}

	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		snap.Uid = st.Uid
		snap.Gid = st.Gid
		snap.Mode = st.Mode

		if u, err := user.LookupId(strconv.FormatUint(uint64(st.Uid), 10)); err == nil {
			snap.User = u.Username
		}
		if g, err := user.LookupGroupId(strconv.FormatUint(uint64(st.Gid), 10)); err == nil {
			snap.Group = g.Name
		}
	}

	return &snap
}

// HashHex returns the hex-encoded content hash, reading the file on the
// first call.
func (snap *Snapshot) HashHex() (string, error) {
	if err := snap.compute(); err != nil {
		return "", err
	}
	return hex.EncodeToString(snap.digest), nil
}

// HashBase64 returns the base64 form used for server-side verification on
// upload.
func (snap *Snapshot) HashBase64() (string, error) {
	if err := snap.compute(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(snap.digest), nil
}

func (snap *Snapshot) compute() error {
	if snap.digest != nil {
		return nil
	}

	f, err := os.Open(snap.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	snap.digest = h.Sum(nil)
	return nil
}

// StatMetadata serializes the ownership and permission attributes into the
// blob stored as object metadata.
func (snap *Snapshot) StatMetadata() (string, error) {
	blob := struct {
		Uid   uint32 `json:"uid"`
		Gid   uint32 `json:"gid"`
		Mode  uint32 `json:"mode"`
		User  string `json:"user,omitempty"`
		Group string `json:"group,omitempty"`
	}{
		Uid:   snap.Uid,
		Gid:   snap.Gid,
		Mode:  snap.Mode,
		User:  snap.User,
		Group: snap.Group,
	}

	data, err := json.Marshal(&blob)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
