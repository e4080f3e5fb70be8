package s3io

import (
	"fmt"
)

type ErrNoSuchObject struct {
	key string
}

func (e *ErrNoSuchObject) Error() string {
	return fmt.Sprintf("no such object in bucket: %s", e.key)
}

// NoSuchObject builds the typed not-found error. Exported so fakes in tests
// can produce the same condition the real client does.
func NoSuchObject(key string) error {
	return &ErrNoSuchObject{key: key}
}

type ErrPartFailed struct {
	key    string
	number int32
	err    error
}

func (e *ErrPartFailed) Error() string {
	return fmt.Sprintf("multipart upload of %s: part %d failed: %v", e.key, e.number, e.err)
}

func (e *ErrPartFailed) Unwrap() error {
	return e.err
}
