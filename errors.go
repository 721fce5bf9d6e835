package llama_bpe

import (
	"errors"
	"fmt"

	"github.com/mohdsm81/llama_bpe/types"
)

// FormatError reports a malformed or truncated binary vocabulary.
type FormatError struct {
	Offset int64  // byte offset where the failing record starts
	Reason string // what was being read
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llama_bpe: malformed vocabulary at offset %d: %s: %v",
			e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("llama_bpe: malformed vocabulary at offset %d: %s",
		e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnsupportedOperationError is returned when Encode is handed anything but
// exactly one input string.
type UnsupportedOperationError struct {
	Op    string
	Count int
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("llama_bpe: %s accepts exactly one string, got %d",
		e.Op, e.Count)
}

// OutOfRangeError reports a token id outside the vocabulary.
type OutOfRangeError struct {
	Id   types.Token
	Size int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("llama_bpe: token id %d out of range for vocabulary of size %d",
		e.Id, e.Size)
}

// ErrEmptyQueue is returned by MergeQueue.Pop on an empty queue.
var ErrEmptyQueue = errors.New("llama_bpe: pop from empty merge queue")
