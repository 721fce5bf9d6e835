package llama_bpe

import (
	"cmp"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/mohdsm81/llama_bpe/arenalist"
)

// MergeCandidate proposes merging two adjacent segments. Checksum is the
// byte length of the merged result and is used to detect candidates made
// stale by later merges.
type MergeCandidate struct {
	Left     arenalist.NodeID
	Right    arenalist.NodeID
	Score    float32
	Checksum int
}

// compareCandidates orders higher scores first, then the candidate whose
// left segment was created earlier.
func compareCandidates(a, b MergeCandidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Left, b.Left); c != 0 {
		return c
	}
	return cmp.Compare(a.Right, b.Right)
}

// MergeQueue is a max-priority queue of merge candidates. Entries are never
// removed or updated in place; the consumer discards stale ones on Pop.
type MergeQueue struct {
	heap *heap.Heap[MergeCandidate]
}

func NewMergeQueue() *MergeQueue {
	return &MergeQueue{heap: heap.NewWith(compareCandidates)}
}

func (q *MergeQueue) Push(candidate MergeCandidate) {
	q.heap.Push(candidate)
}

// Pop removes the highest priority candidate.
func (q *MergeQueue) Pop() (MergeCandidate, error) {
	candidate, ok := q.heap.Pop()
	if !ok {
		return MergeCandidate{}, ErrEmptyQueue
	}
	return candidate, nil
}

func (q *MergeQueue) IsEmpty() bool {
	return q.heap.Empty()
}

func (q *MergeQueue) Len() int {
	return q.heap.Size()
}
