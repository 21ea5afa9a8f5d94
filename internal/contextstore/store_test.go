package contextstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquasense/orchestrator/internal/domain"
)

func turn(text string) domain.ConversationTurn {
	return domain.ConversationTurn{
		Query:    domain.Query{Text: text},
		Envelope: domain.AnswerEnvelope{Text: "answer to " + text},
	}
}

func TestTailUnknownConversation(t *testing.T) {
	s := New(10)
	assert.Empty(t, s.Tail("nope"))
}

func TestAppendAndTail(t *testing.T) {
	s := New(10)
	s.Append("c1", turn("first"))
	s.Append("c1", turn("second"))

	tail := s.Tail("c1")
	assert.Len(t, tail, 2)
	assert.Equal(t, "first", tail[0].Query.Text)
	assert.Equal(t, "second", tail[1].Query.Text)
}

func TestWindowEviction(t *testing.T) {
	s := New(3)
	for i := 0; i < 5; i++ {
		s.Append("c1", turn(fmt.Sprintf("q%d", i)))
	}

	tail := s.Tail("c1")
	assert.Len(t, tail, 3)
	assert.Equal(t, "q2", tail[0].Query.Text)
	assert.Equal(t, "q4", tail[2].Query.Text)
}

func TestTailReturnsSnapshot(t *testing.T) {
	s := New(10)
	s.Append("c1", turn("original"))

	tail := s.Tail("c1")
	tail[0].Query.Text = "mutated"

	again := s.Tail("c1")
	assert.Equal(t, "original", again[0].Query.Text)
}

func TestConversationsAreIndependent(t *testing.T) {
	s := New(10)
	s.Append("c1", turn("one"))
	s.Append("c2", turn("two"))

	assert.Equal(t, 1, s.Len("c1"))
	assert.Equal(t, 1, s.Len("c2"))
	assert.Equal(t, "one", s.Tail("c1")[0].Query.Text)
	assert.Equal(t, "two", s.Tail("c2")[0].Query.Text)
}

func TestEmptyConversationIDIsNoOp(t *testing.T) {
	s := New(10)
	s.Append("", turn("dropped"))
	assert.Nil(t, s.Tail(""))
	assert.Equal(t, 0, s.Len(""))
}

func TestClear(t *testing.T) {
	s := New(10)
	s.Append("c1", turn("one"))
	s.Clear()
	assert.Equal(t, 0, s.Len("c1"))
}
