package driver

import "bytes"

// startupMarker is the prefix chromedriver prints once it begins listening.
const startupMarker = "Starting"

type markerResult int

const (
	markerPending markerResult = iota
	markerMatched
	markerMismatch
)

// markerMatcher accumulates early stdout until it either starts with the
// marker or is long enough to prove it never will.
type markerMatcher struct {
	marker []byte
	buf    []byte
	result markerResult
}

func newMarkerMatcher(marker string) *markerMatcher {
	return &markerMatcher{marker: []byte(marker)}
}

// Feed appends a chunk and returns the verdict. Once settled, further
// chunks are ignored.
func (m *markerMatcher) Feed(chunk []byte) markerResult {
	if m.result != markerPending {
		return m.result
	}
	m.buf = append(m.buf, chunk...)
	switch {
	case bytes.HasPrefix(m.buf, m.marker):
		m.result = markerMatched
	case len(m.buf) >= len(m.marker):
		m.result = markerMismatch
	}
	return m.result
}

// Output returns everything fed before the verdict.
func (m *markerMatcher) Output() string {
	return string(m.buf)
}
