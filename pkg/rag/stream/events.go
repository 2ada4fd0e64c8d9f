// Package stream models an answer stream as a single-producer sequence
// of tagged events with an enforced terminal contract.
package stream

import (
	"context"
	"strings"
	"unicode"

	"ai-docchat-be/pkg/store"
)

// Type tags an event on the wire.
type Type string

const (
	TypeLayerUpdate Type = "layer-update"
	TypeTextDelta   Type = "text-delta"
	TypeSource      Type = "source"
	TypeError       Type = "error"
	TypeDone        Type = "done"
)

// Event is one tagged record in an answer stream.
type Event struct {
	Type     Type            `json:"type"`
	Label    string          `json:"label,omitempty"`
	Chunk    string          `json:"chunk,omitempty"`
	Citation *store.Citation `json:"citation,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func LayerUpdate(label string) Event {
	return Event{Type: TypeLayerUpdate, Label: label}
}

func TextDelta(chunk string) Event {
	return Event{Type: TypeTextDelta, Chunk: chunk}
}

func Source(citation store.Citation) Event {
	return Event{Type: TypeSource, Citation: &citation}
}

func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

func Done() Event {
	return Event{Type: TypeDone}
}

// Terminal reports whether the event ends a stream.
func (e Event) Terminal() bool {
	return e.Type == TypeDone || e.Type == TypeError
}

// Emitter is the producing end of an event stream. Exactly one terminal
// event ever goes out, nothing follows it, and the channel closes right
// after. A dead context stops emission best-effort: pending sends are
// dropped and the channel closes. Not safe for concurrent producers.
type Emitter struct {
	ctx    context.Context
	ch     chan Event
	closed bool
}

// NewEmitter builds an emitter whose lifetime is bound to ctx. The
// buffer lets the pipeline run ahead of a slow consumer a little.
func NewEmitter(ctx context.Context, buffer int) *Emitter {
	if buffer < 0 {
		buffer = 0
	}
	return &Emitter{
		ctx: ctx,
		ch:  make(chan Event, buffer),
	}
}

// Events is the consuming end; it is closed after the terminal event.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Send forwards one event, reporting whether it was delivered. Events
// after the terminal one, and events on a dead context, are dropped.
func (e *Emitter) Send(event Event) bool {
	if e.closed {
		return false
	}

	// A dead context always drops, even when the buffer has room.
	select {
	case <-e.ctx.Done():
		e.closed = true
		close(e.ch)
		return false
	default:
	}

	select {
	case <-e.ctx.Done():
		e.closed = true
		close(e.ch)
		return false
	case e.ch <- event:
	}

	if event.Terminal() {
		e.closed = true
		close(e.ch)
	}
	return true
}

// Finish terminates the stream successfully.
func (e *Emitter) Finish() {
	e.Send(Done())
}

// Fail terminates the stream with an error message.
func (e *Emitter) Fail(message string) {
	e.Send(Error(message))
}

// Closed reports whether the terminal event went out (or the context died).
func (e *Emitter) Closed() bool {
	return e.closed
}

// Words splits text into chunks of n words each, preserving all
// whitespace so the concatenation of the chunks is exactly the input.
func Words(text string, n int) []string {
	if text == "" {
		return nil
	}
	if n <= 0 {
		n = 1
	}

	var chunks []string
	var b strings.Builder
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			b.WriteRune(r)
			continue
		}
		if !inWord {
			if words == n {
				chunks = append(chunks, b.String())
				b.Reset()
				words = 0
			}
			inWord = true
			words++
		}
		b.WriteRune(r)
	}

	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
