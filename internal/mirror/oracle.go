package mirror

import (
	"context"
	"errors"
	"io/fs"
	"maps"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/s3io"
)

// Oracle decides whether a file already exists remotely with verified
// integrity. The files under management are immutable once written, so a
// remote copy that diverges in size is presumed to be the good one and the
// local file the corrupted one.
type Oracle struct {
	verify bool
	log    logging.Logger
}

// NewOracle builds the oracle. With verify false, matching sizes are
// trusted without reading the file - a deliberate trade at scale.
func NewOracle(verify bool, log logging.Logger) *Oracle {
	return &Oracle{
		verify: verify,
		log:    log,
	}
}

// ExistsAndValid reports true when the upload can be skipped. The metadata
// fetch is retried through the session; exhausted retries propagate as
// fatal.
func (o *Oracle) ExistsAndValid(ctx context.Context, sess *Session, key string, snap *Snapshot) (bool, error) {

	var info *s3io.ObjectInfo
	err := sess.WithRetry(ctx, "head "+key, func(cl s3io.Client) error {
		var err error
		info, err = cl.Head(ctx, key)
		if err != nil {
			var nosuch *s3io.ErrNoSuchObject
			if errors.As(err, &nosuch) {
				// absence is an answer, not a failure
				info = nil
				return nil
			}
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}

	if info.Size != snap.Size {
		o.log.Warn(ctx, "remote size differs from local file; assuming local corruption and skipping",
			"path", snap.Path, "key", key, "local_size", snap.Size, "remote_size", info.Size)
		return true, nil
	}

	if !o.verify {
		return true, nil
	}

	hash, err := snap.HashHex()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.log.Debug(ctx, "file vanished before verification", "path", snap.Path)
			return true, nil
		}
		return false, err
	}

	remote, hasMeta := info.Metadata[MetaHash]
	if !hasMeta {
		remote = info.ETag
	}

	if hash != remote {
		o.log.Warn(ctx, "remote hash differs from local file; re-uploading",
			"path", snap.Path, "key", key, "local_hash", hash, "remote_hash", remote)
		return false, nil
	}

	if !hasMeta {
		// the tag matched but the explicit metadata was missing; record
		// the verified hash so later checks don't depend on the tag
		md := maps.Clone(info.Metadata)
		if md == nil {
			md = make(map[string]string)
		}
		md[MetaHash] = hash

		werr := sess.WithRetry(ctx, "write hash metadata "+key, func(cl s3io.Client) error {
			return cl.PutMetadata(ctx, key, md)
		})
		if werr != nil {
			o.log.Warn(ctx, "failed to write back hash metadata", "key", key, "error", werr)
		}
	}

	return true, nil
}
