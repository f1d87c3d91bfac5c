package pipeline

// ProgressEvent reports save-stage progress every configured percentage step.
type ProgressEvent struct {
	Stage   Stage
	Percent int
	Written int
	Total   int
}

// ProgressFunc consumes progress events. It runs on the emitter goroutine,
// never on the indexing path.
type ProgressFunc func(ProgressEvent)

// progressEmitter decouples progress delivery from the indexing stages: a
// slow consumer drops events instead of blocking the run.
type progressEmitter struct {
	events chan ProgressEvent
	done   chan struct{}
}

func newProgressEmitter(fn ProgressFunc) *progressEmitter {
	e := &progressEmitter{
		events: make(chan ProgressEvent, 64),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(e.done)
		for ev := range e.events {
			if fn != nil {
				fn(ev)
			}
		}
	}()
	return e
}

// emit delivers an event without blocking; events are dropped when the
// consumer lags behind the buffer.
func (e *progressEmitter) emit(ev ProgressEvent) {
	select {
	case e.events <- ev:
	default:
	}
}

// close stops the emitter and waits for in-flight events to drain.
func (e *progressEmitter) close() {
	close(e.events)
	<-e.done
}
