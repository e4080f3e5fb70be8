package mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/s3io"
)

// Objects above this size go to the infrequent-access tier; backed-up data
// files are rarely read back.
const iaThreshold = 1 * 1024 * 1024

// ExecutorOptions selects the transfer behaviour for one pipeline.
type ExecutorOptions struct {
	// MaxUploadSize is the largest monolithic transfer; bigger files go
	// multipart.
	MaxUploadSize int64

	// WithIndex enables the per-directory listing upload;
	// WithGlobalIndex additionally uploads the cross-root listing.
	WithIndex       bool
	WithGlobalIndex bool

	// Roots and Predicate feed the index builders.
	Roots     []string
	Predicate Predicate
}

// Executor performs the actual transfer for files the oracle rejected.
type Executor struct {
	namer   *Namer
	planner *Planner
	opts    ExecutorOptions
	log     logging.Logger
}

func NewExecutor(namer *Namer, planner *Planner, opts ExecutorOptions, log logging.Logger) *Executor {
	return &Executor{
		namer:   namer,
		planner: planner,
		opts:    opts,
		log:     log,
	}
}

// Upload transfers the file behind snap to key. The whole attempt is
// retried through the session with a fresh connection each time; a source
// file that disappears at any point is a skip, and exhausted retries
// propagate as fatal.
func (ex *Executor) Upload(ctx context.Context, sess *Session, key string, snap *Snapshot) (Outcome, error) {

	if _, err := os.Stat(snap.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OutcomeSkippedMissing, nil
		}
		return 0, err
	}

	// index objects go up before the content so a restore can always
	// reconstruct the directory state of anything it finds
	if ex.opts.WithIndex {
		if err := ex.uploadIndexes(ctx, sess, snap.Path); err != nil {
			return 0, err
		}
	}

	statBlob, err := snap.StatMetadata()
	if err != nil {
		return 0, err
	}

	hashHex, err := snap.HashHex()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OutcomeSkippedMissing, nil
		}
		return 0, err
	}
	hashB64, err := snap.HashBase64()
	if err != nil {
		return 0, err
	}

	opts := s3io.PutOptions{
		ContentLength: snap.Size,
		ContentMD5:    hashB64,
		Metadata: map[string]string{
			MetaStat: statBlob,
			MetaHash: hashHex,
		},
	}

	err = sess.WithRetry(ctx, "upload "+key, func(cl s3io.Client) error {
		if snap.Size > ex.opts.MaxUploadSize {
			return ex.multipart(ctx, cl, key, snap, opts)
		}
		return ex.monolithic(ctx, cl, key, snap, opts)
	})
	if err != nil {
		if errors.Is(err, errSourceVanished) {
			return OutcomeSkippedMissing, nil
		}
		return 0, err
	}

	return OutcomeUploaded, nil
}

func (ex *Executor) monolithic(ctx context.Context, cl s3io.Client, key string, snap *Snapshot, opts s3io.PutOptions) error {

	f, err := os.Open(snap.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errSourceVanished
		}
		return err
	}
	defer f.Close()

	opts.StorageClass = s3io.StorageStandard
	if snap.Size > iaThreshold {
		opts.StorageClass = s3io.StorageInfrequent
	}

	nbytes, err := cl.Put(ctx, key, f, opts)
	if err != nil {
		return err
	}

	if nbytes == snap.Size {
		ex.log.Info(ctx, "upload complete",
			"path", snap.Path, "key", key,
			"size", humanize.IBytes(uint64(snap.Size)),
			"storage_class", opts.StorageClass)
	}

	return nil
}

func (ex *Executor) multipart(ctx context.Context, cl s3io.Client, key string, snap *Snapshot, opts s3io.PutOptions) error {

	chunkSize := ex.planner.ChunkSize(ctx)

	chunks, err := OpenChunks(snap.Path, chunkSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errSourceVanished
		}
		return err
	}
	defer chunks.Close()

	mp, err := cl.CreateMultipart(ctx, key, opts)
	if err != nil {
		return err
	}

	var number int32 = 1
	var total int64

	for {
		buf, err := chunks.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			mp.Abort(ctx)
			return err
		}

		if err := mp.UploadPart(ctx, number, buf); err != nil {
			mp.Abort(ctx)
			return err
		}

		total += int64(len(buf))
		number++
	}

	if err := mp.Complete(ctx); err != nil {
		return err
	}

	if total == snap.Size {
		ex.log.Info(ctx, "upload complete",
			"path", snap.Path, "key", key,
			"size", humanize.IBytes(uint64(snap.Size)),
			"parts", number-1,
			"chunk_size", humanize.IBytes(uint64(chunkSize)))
	}

	return nil
}

func (ex *Executor) uploadIndexes(ctx context.Context, sess *Session, path string) error {

	listing, err := DirectoryIndex(filepath.Dir(path), ex.opts.Predicate)
	if err != nil {
		return err
	}

	key := ex.namer.DirIndexKey(path)
	err = sess.WithRetry(ctx, "index "+key, func(cl s3io.Client) error {
		_, err := cl.Upload(ctx, key, "application/json", bytes.NewReader(listing))
		return err
	})
	if err != nil {
		return err
	}

	if !ex.opts.WithGlobalIndex {
		return nil
	}

	index, err := GlobalIndex(ex.opts.Roots, ex.opts.Predicate)
	if err != nil {
		return err
	}

	gkey := ex.namer.GlobalIndexKey(path)
	return sess.WithRetry(ctx, "index "+gkey, func(cl s3io.Client) error {
		_, err := cl.Upload(ctx, gkey, "text/plain", bytes.NewReader(index))
		return err
	})
}
