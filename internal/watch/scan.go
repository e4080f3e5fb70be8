package watch

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/mirror"
)

// ScanExisting walks the roots once and enqueues every matching regular
// file. Used for the one-time backup of files that predate the watch.
func ScanExisting(ctx context.Context, roots []string, pred mirror.Predicate, queue *mirror.Queue, log logging.Logger) {
	for _, root := range roots {
		count := 0

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn(ctx, "scan error", "path", path, "error", err)
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !pred.Match(path) {
				log.Debug(ctx, "path rejected by predicate", "path", path)
				return nil
			}
			queue.Enqueue(path)
			count++
			return nil
		})
		if err != nil {
			log.Warn(ctx, "scan failed", "root", root, "error", err)
			continue
		}

		log.Info(ctx, "scanned existing files", "root", root, "queued", count)
	}
}
