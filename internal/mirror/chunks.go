package mirror

import (
	"context"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/studio1767/s3mirror/internal/logging"
)

// The store rejects multipart parts below 5 MiB, so the planner never
// shrinks past it.
const minChunkSize = 5 * 1024 * 1024

// MemoryFunc reports the bytes of memory currently available for buffering
// chunks: free plus buffers plus page cache.
type MemoryFunc func() (uint64, error)

// SystemMemory is the production MemoryFunc.
func SystemMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Free + vm.Buffers + vm.Cached, nil
}

// Planner sizes multipart chunks against available memory. Buffering a full
// configured chunk on a loaded host can push the system into swap, so when
// memory is short the chunk shrinks to a twentieth of what's available.
type Planner struct {
	chunkSize int64
	memory    MemoryFunc
	log       logging.Logger
}

func NewPlanner(chunkSize int64, memory MemoryFunc, log logging.Logger) *Planner {
	if memory == nil {
		memory = SystemMemory
	}
	return &Planner{
		chunkSize: chunkSize,
		memory:    memory,
		log:       log,
	}
}

// ChunkSize returns the effective chunk size for the next multipart upload.
func (p *Planner) ChunkSize(ctx context.Context) int64 {
	avail, err := p.memory()
	if err != nil {
		p.log.Warn(ctx, "memory probe failed, using configured chunk size",
			"chunk_size", humanize.IBytes(uint64(p.chunkSize)), "error", err)
		return p.chunkSize
	}

	if avail >= uint64(p.chunkSize) {
		return p.chunkSize
	}

	size := int64(avail / 20)

	floor := int64(minChunkSize)
	if floor > p.chunkSize {
		floor = p.chunkSize
	}
	if size < floor {
		size = floor
	}

	p.log.Warn(ctx, "available memory below configured chunk size, shrinking",
		"available", humanize.IBytes(avail),
		"configured", humanize.IBytes(uint64(p.chunkSize)),
		"effective", humanize.IBytes(uint64(size)))

	return size
}

// ChunkReader produces the finite, single-pass sequence of owned buffers
// for a multipart upload. The underlying file is closed as soon as the
// sequence ends, errors, or is abandoned via Close.
type ChunkReader struct {
	file      *os.File
	chunkSize int64
	done      bool
}

func OpenChunks(path string, chunkSize int64) (*ChunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &ChunkReader{
		file:      f,
		chunkSize: chunkSize,
	}, nil
}

// Next returns the next buffer, or io.EOF once the file is exhausted. Each
// buffer is independently owned by the caller. The final buffer may be
// shorter than the chunk size.
func (cr *ChunkReader) Next() ([]byte, error) {
	if cr.done {
		return nil, io.EOF
	}

	buf := make([]byte, cr.chunkSize)
	n, err := io.ReadFull(cr.file, buf)

	switch err {
	case nil:
		return buf, nil
	case io.ErrUnexpectedEOF:
		// short final chunk; the next call reports EOF
		cr.Close()
		return buf[:n], nil
	case io.EOF:
		cr.Close()
		return nil, io.EOF
	default:
		cr.Close()
		return nil, err
	}
}

func (cr *ChunkReader) Close() error {
	if cr.done {
		return nil
	}
	cr.done = true
	return cr.file.Close()
}
