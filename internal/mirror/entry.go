// Package mirror is the upload pipeline: a shared queue of pending file
// paths drained by a pool of workers, each deciding whether a file needs
// uploading and transferring it monolithically or in parts.
package mirror

// Metadata keys attached to every primary upload.
const (
	MetaHash = "md5sum"
	MetaStat = "stat"
)

// Outcome is the result of processing one queued path. Unrecoverable
// failures are errors, never an Outcome.
type Outcome int

const (
	// OutcomeUploaded - the file content was transferred to the store.
	OutcomeUploaded Outcome = iota
	// OutcomeSkippedPresent - the remote copy exists and passed the
	// integrity checks.
	OutcomeSkippedPresent
	// OutcomeSkippedMissing - the local file vanished between discovery
	// and processing.
	OutcomeSkippedMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeSkippedPresent:
		return "skipped-already-present"
	case OutcomeSkippedMissing:
		return "skipped-missing-source"
	}
	return "unknown"
}
