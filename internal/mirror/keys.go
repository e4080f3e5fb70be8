package mirror

import (
	"fmt"
)

// Namer derives deterministic object names. The host component keeps files
// from different hosts with identical paths from colliding in the bucket.
type Namer struct {
	prefix    string
	host      string
	separator string
}

func NewNamer(prefix, host, separator string) *Namer {
	return &Namer{
		prefix:    prefix,
		host:      host,
		separator: separator,
	}
}

// Key is the object name for a file's content.
func (n *Namer) Key(path string) string {
	return fmt.Sprintf("%s%s%s%s", n.prefix, n.host, n.separator, path)
}

// DirIndexKey names the per-directory listing uploaded alongside path.
func (n *Namer) DirIndexKey(path string) string {
	return n.Key(path) + "-listdir.json"
}

// GlobalIndexKey names the cross-root file listing uploaded alongside path.
func (n *Namer) GlobalIndexKey(path string) string {
	return n.Key(path) + "-global-index.txt"
}
