package chat

// StreamEvent carries one fragment, or the end of a turn's stream.
type StreamEvent struct {
	Delta string
	Done  bool
	Err   error
}

// Events reads turn on a goroutine and forwards its fragments. The last event
// has Done set. The goroutine does not touch the session; the receiver calls
// turn.Finish after the Done event.
func Events(turn *Turn) <-chan StreamEvent {
	ch := make(chan StreamEvent, 8)

	go func() {
		defer close(ch)

		for turn.Next() {
			ch <- StreamEvent{Delta: turn.Fragment()}
		}
		ch <- StreamEvent{Done: true, Err: turn.Err()}
	}()

	return ch
}
