package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	a := "the quick brown fox jumps over the lazy dog"
	b := "the quick red fox leaps over the lazy dog"

	stream := Diff(a, b)
	assert.Greater(t, stream.Len(), 1)

	// every span is classified and non-empty
	ops := make(map[Op]int)
	for _, span := range stream.Spans() {
		assert.NotEmpty(t, span.Text)
		ops[span.Op]++
	}
	assert.Greater(t, ops[OpEqual], 0)
	assert.Greater(t, ops[OpInsert], 0)
	assert.Greater(t, ops[OpDelete], 0)

	// equal+delete replays the left side, equal+insert the right
	assert.Equal(t, a, stream.Left())
	assert.Equal(t, b, stream.Right())
}

func TestDiff_WordInsertion(t *testing.T) {
	stream := Diff("hello world", "hello there world")

	var inserted strings.Builder
	for _, span := range stream.Spans() {
		assert.NotEqual(t, OpDelete, span.Op)
		if span.Op == OpInsert {
			inserted.WriteString(span.Text)
		}
	}
	assert.Equal(t, "there ", inserted.String())

	assert.Equal(t, "hello world", stream.Left())
	assert.Equal(t, "hello there world", stream.Right())
}

func TestDiff_Identical(t *testing.T) {
	stream := Diff("same text", "same text")
	assert.Equal(t, 1, stream.Len())

	span, ok := stream.Next()
	assert.True(t, ok)
	assert.Equal(t, OpEqual, span.Op)
	assert.Equal(t, "same text", span.Text)
}

func TestDiff_Empty(t *testing.T) {
	stream := Diff("", "")
	assert.Equal(t, 0, stream.Len())

	_, ok := stream.Next()
	assert.False(t, ok)

	stream = Diff("", "added")
	assert.Equal(t, 1, stream.Len())
	assert.Equal(t, Span{Op: OpInsert, Text: "added"}, stream.Spans()[0])

	stream = Diff("removed", "")
	assert.Equal(t, 1, stream.Len())
	assert.Equal(t, Span{Op: OpDelete, Text: "removed"}, stream.Spans()[0])
}

func TestDiff_SemanticCleanup(t *testing.T) {
	// a word level change comes back as one coherent chunk per side, not
	// a scatter of single character edits
	stream := Diff("reference intake", "reference outtake")

	var inserted, deleted int
	for span, ok := stream.Next(); ok; span, ok = stream.Next() {
		switch span.Op {
		case OpInsert:
			inserted++
		case OpDelete:
			deleted++
		}
	}
	assert.LessOrEqual(t, inserted, 1)
	assert.LessOrEqual(t, deleted, 1)
}

func TestStream_NextRestart(t *testing.T) {
	stream := Diff("abc", "abd")

	total := stream.Len()
	seen := 0
	for _, ok := stream.Next(); ok; _, ok = stream.Next() {
		seen++
	}
	assert.Equal(t, total, seen)

	// drained
	_, ok := stream.Next()
	assert.False(t, ok)
	assert.Empty(t, stream.Spans())

	// a restarted stream replays the same spans
	stream.Restart()
	assert.Len(t, stream.Spans(), total)

	first, ok := stream.Next()
	assert.True(t, ok)
	assert.Equal(t, OpEqual, first.Op)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "equal", OpEqual.String())
	assert.Equal(t, "insertion", OpInsert.String())
	assert.Equal(t, "deletion", OpDelete.String())
}
