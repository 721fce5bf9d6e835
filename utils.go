package llama_bpe

import (
	"strings"
	"unicode/utf8"

	"github.com/mohdsm81/llama_bpe/types"
)

type TrimDirection uint

const (
	TrimTop    TrimDirection = iota
	TrimBottom TrimDirection = iota
	TrimNone   TrimDirection = iota
)

// TokensReady
// Determine if the sequence of Tokens given is ready to be serialized
// to string, based on if the trailing bytes complete a UTF-8 rune. Ids
// outside the vocabulary contribute nothing.
func (t *Tokenizer) TokensReady(tokens *types.Tokens) bool {
	bs := make([]byte, 0, 4*len(*tokens))
	for _, token := range *tokens {
		if entry, err := t.vocab.Entry(token); err == nil {
			bs = append(bs, entry.Bytes...)
		}
	}
	return runeComplete(bs)
}

// runeComplete reports whether bs does not end inside a multi-byte rune.
// Invalid sequences count as complete so a stream is never held forever.
func runeComplete(bs []byte) bool {
	start := len(bs) - 1
	for start >= 0 && len(bs)-start < utf8.UTFMax && !utf8.RuneStart(bs[start]) {
		start--
	}
	if start < 0 {
		return true
	}
	tail := bs[start:]
	if utf8.FullRune(tail) {
		return true
	}
	// A lead byte that cannot start any rune is invalid, not incomplete.
	return tail[0] < 0xC0 || tail[0] > 0xF4
}

// TrimTokens
// Trims the given Tokens to tokens that produce valid unicode.
func (t *Tokenizer) TrimTokens(tokens *types.Tokens) (trimmed *types.Tokens) {
	trimmed = tokens
	for {
		if len(*trimmed) == 0 {
			return trimmed
		}
		if t.TokensReady(trimmed) {
			return trimmed
		} else {
			newTrimmed := (*trimmed)[0 : len(*trimmed)-1]
			trimmed = &newTrimmed
		}
	}
}

// TrimNewlines
// Keeps whole lines from the top or bottom of the decoded tokens until
// limit tokens would be exceeded, then re-encodes them.
func (t *Tokenizer) TrimNewlines(tokens *types.Tokens, direction TrimDirection,
	limit uint) (*types.Tokens, error) {
	trimmed := make(types.Tokens, 0)
	if uint(len(*tokens)) <= limit {
		return tokens, nil
	} else if direction == TrimNone {
		return &trimmed, nil
	}
	decoded, err := t.Decode(*tokens)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(decoded, "\n")
	var start, end, step, idx int
	switch direction {
	case TrimTop:
		start = len(lines) - 1
		end = -1
		step = -1
	case TrimBottom:
		start = 0
		end = len(lines)
		step = 1
	}
	accTokens := make(types.Tokens, 0)
	for idx = start; idx != end; idx += step {
		line := lines[idx]
		switch direction {
		case TrimTop:
			line = "\n" + line
		case TrimBottom:
			line = line + "\n"
		}
		newTokens := t.EncodeBody(line)
		if len(newTokens)+len(accTokens) > int(limit) {
			return &accTokens, nil
		} else {
			switch direction {
			case TrimTop:
				accTokens = append(newTokens, accTokens...)
			case TrimBottom:
				accTokens = append(accTokens, newTokens...)
			}
		}
	}
	return &accTokens, nil
}

// AlignAndSizeTokens
// Cuts tokens to at most desiredLength without splitting a rune, and
// returns the chunk together with the index in tokens where it stopped.
func (t *Tokenizer) AlignAndSizeTokens(tokens *types.Tokens,
	desiredLength int) (alignedTokens types.Tokens, endAt int) {
	if desiredLength > len(*tokens) {
		desiredLength = len(*tokens)
	}
	chunk := (*tokens)[0:desiredLength]
	// We trim to valid tokens, as we don't want partials
	// that are truncated multi-tokens.
	trimmed := t.TrimTokens(&chunk)
	return append(types.Tokens(nil), *trimmed...), len(*trimmed)
}
