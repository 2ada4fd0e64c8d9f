package stream

import (
	"context"
	"strings"
	"testing"

	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func collect(e *Emitter) []Event {
	var out []Event
	for ev := range e.Events() {
		out = append(out, ev)
	}
	return out
}

func TestEmitterOrderAndSingleTerminal(t *testing.T) {
	e := NewEmitter(context.Background(), 16)

	assert.True(t, e.Send(LayerUpdate("Retrieving")))
	assert.True(t, e.Send(TextDelta("Photosynthesis is ")))
	assert.True(t, e.Send(Source(store.Citation{FileName: "bio.pdf", PageNumber: 3})))
	e.Finish()

	assert.False(t, e.Send(TextDelta("late chunk")), "nothing may follow the terminal event")
	assert.True(t, e.Closed())

	events := collect(e)
	assert.Len(t, events, 4)
	assert.Equal(t, TypeLayerUpdate, events[0].Type)
	assert.Equal(t, TypeTextDelta, events[1].Type)
	assert.Equal(t, TypeSource, events[2].Type)
	assert.Equal(t, "bio.pdf", events[2].Citation.FileName)
	assert.Equal(t, TypeDone, events[3].Type)

	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestEmitterFail(t *testing.T) {
	e := NewEmitter(context.Background(), 4)
	e.Fail("generation broke")
	e.Finish() // dropped

	events := collect(e)
	assert.Len(t, events, 1)
	assert.Equal(t, TypeError, events[0].Type)
	assert.Equal(t, "generation broke", events[0].Message)
}

func TestEmitterStopsOnDeadContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEmitter(ctx, 0)

	cancel()

	assert.False(t, e.Send(TextDelta("never delivered")))
	assert.True(t, e.Closed())

	_, open := <-e.Events()
	assert.False(t, open, "channel must be closed after the context dies")
}

func TestWordsGrouping(t *testing.T) {
	chunks := Words("one two three four five", 2)
	assert.Equal(t, []string{"one two ", "three four ", "five"}, chunks)
}

func TestWordsConcatenationIsIdentity(t *testing.T) {
	texts := []string{
		"plain words here",
		"keeps\nnewlines\n\nand  double  spaces",
		"## heading\n- bullet one\n- bullet two",
		"single",
		"",
	}

	for _, text := range texts {
		for _, n := range []int{1, 2, 4, 50} {
			got := strings.Join(Words(text, n), "")
			assert.Equal(t, text, got, "Words(%q, %d) must reassemble exactly", text, n)
		}
	}
}

func TestWordsZeroChunkSize(t *testing.T) {
	chunks := Words("a b", 0)
	assert.Equal(t, "a b", strings.Join(chunks, ""))
	assert.Len(t, chunks, 2)
}
