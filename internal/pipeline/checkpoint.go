package pipeline

import "strings"

// accumulator buffers streamed text and reports when a checkpoint is due.
// It knows nothing about the stream or the store.
type accumulator struct {
	every      int
	buf        strings.Builder
	chunks     int
	sinceFlush int
}

func newAccumulator(every int) *accumulator {
	if every < 1 {
		every = 10
	}
	return &accumulator{every: every}
}

// add appends chunk and reports whether the buffer should be flushed now.
func (a *accumulator) add(chunk string) bool {
	if chunk == "" {
		return false
	}
	a.buf.WriteString(chunk)
	a.chunks++
	a.sinceFlush++
	if a.sinceFlush >= a.every {
		a.sinceFlush = 0
		return true
	}
	return false
}

func (a *accumulator) text() string { return a.buf.String() }

func (a *accumulator) count() int { return a.chunks }
