package mirror

import (
	"regexp"
	"strings"
)

// Temporary files carry this marker while the upstream system is still
// writing them; they must never be mirrored.
const tempMarker = "-tmp"

// Predicate decides whether a path is managed by the mirror. Paths failing
// the predicate are dropped before they reach the queue.
type Predicate interface {
	Match(path string) bool
}

// NewPredicate selects the configured variant. The include and exclude
// patterns are mutually exclusive; with neither set, the default variant
// excludes paths containing the temp-file marker.
func NewPredicate(include, exclude string) (Predicate, error) {
	switch {
	case include != "":
		re, err := regexp.Compile(include)
		if err != nil {
			return nil, err
		}
		return &patternPredicate{re: re, include: true}, nil
	case exclude != "":
		re, err := regexp.Compile(exclude)
		if err != nil {
			return nil, err
		}
		return &patternPredicate{re: re, include: false}, nil
	default:
		return &tempMarkerPredicate{}, nil
	}
}

type tempMarkerPredicate struct{}

func (p *tempMarkerPredicate) Match(path string) bool {
	return !strings.Contains(path, tempMarker)
}

type patternPredicate struct {
	re      *regexp.Regexp
	include bool
}

func (p *patternPredicate) Match(path string) bool {
	return p.re.MatchString(path) == p.include
}
