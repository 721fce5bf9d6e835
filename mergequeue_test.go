package llama_bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohdsm81/llama_bpe/arenalist"
)

func TestMergeQueue_ScoreOrder(t *testing.T) {
	q := NewMergeQueue()
	q.Push(MergeCandidate{Left: 0, Right: 1, Score: -3})
	q.Push(MergeCandidate{Left: 1, Right: 2, Score: 5})
	q.Push(MergeCandidate{Left: 2, Right: 3, Score: 0.5})
	assert.Equal(t, 3, q.Len())

	scores := make([]float32, 0)
	for !q.IsEmpty() {
		c, err := q.Pop()
		require.NoError(t, err)
		scores = append(scores, c.Score)
	}
	assert.Equal(t, []float32{5, 0.5, -3}, scores)
}

func TestMergeQueue_TieBreakLeftmost(t *testing.T) {
	q := NewMergeQueue()
	q.Push(MergeCandidate{Left: 7, Right: 8, Score: 1})
	q.Push(MergeCandidate{Left: 2, Right: 3, Score: 1})
	q.Push(MergeCandidate{Left: 4, Right: 5, Score: 1})
	q.Push(MergeCandidate{Left: 9, Right: 10, Score: 2})

	order := make([]arenalist.NodeID, 0)
	for !q.IsEmpty() {
		c, _ := q.Pop()
		order = append(order, c.Left)
	}
	assert.Equal(t, []arenalist.NodeID{9, 2, 4, 7}, order)
}

func TestMergeQueue_Empty(t *testing.T) {
	q := NewMergeQueue()
	assert.True(t, q.IsEmpty())
	_, err := q.Pop()
	assert.ErrorIs(t, err, ErrEmptyQueue)

	q.Push(MergeCandidate{Left: 0, Right: 1})
	_, err = q.Pop()
	require.NoError(t, err)
	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrEmptyQueue)
}
