package ai

import (
	"errors"
	"testing"
)

type fakeStream struct {
	deltas []string
	err    error
	index  int
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.index >= len(s.deltas) {
		return false
	}
	s.index++
	return true
}

func (s *fakeStream) Content() string {
	if s.index == 0 || s.index > len(s.deltas) {
		return ""
	}
	return s.deltas[s.index-1]
}

func (s *fakeStream) Err() error {
	if s.index >= len(s.deltas) {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func TestFragments_SkipsEmptyDeltas(t *testing.T) {
	stream := &fakeStream{deltas: []string{"## Answer\n", "", "Cells", "", " divide."}}

	var got []string
	for delta, err := range Fragments(stream) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, delta)
	}

	want := []string{"## Answer\n", "Cells", " divide."}
	if len(got) != len(want) {
		t.Fatalf("Expected %d fragments, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if stream.closed {
		t.Error("Fragments must not close the stream")
	}
}

func TestFragments_ErrorIsLast(t *testing.T) {
	boom := errors.New("connection reset")
	stream := &fakeStream{deltas: []string{"a", "b"}, err: boom}

	var (
		count   int
		lastErr error
	)
	for delta, err := range Fragments(stream) {
		if lastErr != nil {
			t.Fatal("no values expected after an error")
		}
		if err != nil {
			lastErr = err
			continue
		}
		if delta == "" {
			t.Error("empty delta yielded")
		}
		count++
	}

	if count != 2 {
		t.Errorf("Expected 2 fragments before the error, got %d", count)
	}
	if !errors.Is(lastErr, boom) {
		t.Errorf("Expected %v, got %v", boom, lastErr)
	}
}

func TestFragments_EarlyBreak(t *testing.T) {
	stream := &fakeStream{deltas: []string{"a", "b", "c"}}
	for delta := range Fragments(stream) {
		if delta == "a" {
			break
		}
	}
	if stream.index != 1 {
		t.Errorf("Expected consumption to stop after the first delta, got index %d", stream.index)
	}
}

func TestCollect(t *testing.T) {
	text, err := Collect(&fakeStream{deltas: []string{"Hello", "", ", world"}})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if text != "Hello, world" {
		t.Errorf("Expected concatenated text, got %q", text)
	}
}

func TestCollect_PartialOnError(t *testing.T) {
	boom := errors.New("timeout")
	text, err := Collect(&fakeStream{deltas: []string{"part", "ial"}, err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected %v, got %v", boom, err)
	}
	if text != "partial" {
		t.Errorf("Expected partial text, got %q", text)
	}
}

func TestCollect_Empty(t *testing.T) {
	text, err := Collect(&fakeStream{})
	if err != nil || text != "" {
		t.Errorf("Expected empty result, got %q, %v", text, err)
	}
}
