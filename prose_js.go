//go:build wasip1 || js

package llama_bpe

import (
	"errors"

	"github.com/mohdsm81/llama_bpe/types"
)

func (t *Tokenizer) TrimIncompleteSentence(
	tokens *types.Tokens,
) (*types.Tokens, error) {
	return nil, errors.New("TrimIncompleteSentence is not implemented")
}

func (t *Tokenizer) TrimSentences(
	tokens *types.Tokens,
	direction TrimDirection,
	limit uint,
) (*types.Tokens, error) {
	return nil, errors.New("TrimSentences is not implemented")
}
