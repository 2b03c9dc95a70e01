package ai

import (
	"iter"
	"strings"
)

// Fragments adapts a ChatStream to a range-over-func sequence.
// Empty deltas are skipped. If the stream fails, the final pair carries the error.
// The stream is not closed; callers own it.
func Fragments(stream ChatStream) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for stream.Next() {
			delta := stream.Content()
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains a stream and returns the concatenated text.
// On error the text received so far is returned alongside it.
func Collect(stream ChatStream) (string, error) {
	var sb strings.Builder
	for delta, err := range Fragments(stream) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}
