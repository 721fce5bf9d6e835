//go:build !wasip1 && !js

package llama_bpe

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"

	"github.com/mohdsm81/llama_bpe/types"
)

// Splits run-on sentences such as "end.Start" that the segmenter misses.
var puncPat = regexp.MustCompile(`\p{L}[.!?;]\p{L}`)

func (t *Tokenizer) sentences(tokens *types.Tokens) (*prose.Document, error) {
	decoded, err := t.Decode(*tokens)
	if err != nil {
		return nil, err
	}
	return prose.NewDocument(
		decoded,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
}

// TrimIncompleteSentence
// Drops a trailing sentence that does not end in punctuation. Tokens are
// returned unchanged when that would remove more than a fifth of the text.
func (t *Tokenizer) TrimIncompleteSentence(tokens *types.Tokens) (
	*types.Tokens,
	error,
) {
	doc, err := t.sentences(tokens)
	if err != nil {
		return nil, err
	}
	firstSentences := doc.Sentences()
	if len(firstSentences) == 0 {
		return tokens, nil
	}
	sentences := make([]string, 0)
	for _, sentence := range firstSentences {
		sentences = append(sentences, puncPat.Split(sentence.Text, -1)...)
	}
	lastSentence := sentences[len(sentences)-1]
	var last rune
	for _, r := range lastSentence {
		if unicode.IsSpace(r) {
			continue
		}
		last = r
	}
	var text = doc.Text
	if !unicode.IsPunct(last) {
		trimPos := strings.LastIndex(text, lastSentence)
		if trimPos >= 1 {
			text = doc.Text[:trimPos-1]
		}
	}
	text = strings.TrimSpace(text)
	if float32(len(text)) < float32(len(doc.Text))*0.8 {
		return tokens, nil
	}
	encoded := t.EncodeBody(text)
	return &encoded, nil
}

// TrimSentences
// Keeps whole sentences from the top or bottom of the decoded tokens while
// they fit within limit tokens.
func (t *Tokenizer) TrimSentences(
	tokens *types.Tokens,
	direction TrimDirection,
	limit uint,
) (*types.Tokens, error) {
	trimmed := make(types.Tokens, 0)
	if uint(len(*tokens)) <= limit {
		return tokens, nil
	} else if direction == TrimNone {
		return &trimmed, nil
	}
	doc, err := t.sentences(tokens)
	if err != nil {
		return nil, err
	}
	sentences := doc.Sentences()
	text := doc.Text
	switch direction {
	case TrimTop:
		// Grow a suffix of whole sentences.
		begin := len(text)
		searchEnd := len(text)
		for idx := len(sentences) - 1; idx >= 0; idx-- {
			sentenceIdx := strings.LastIndex(text[:searchEnd],
				sentences[idx].Text)
			if sentenceIdx < 0 {
				break
			}
			// Keep the separating whitespace with the sentence.
			if sentenceIdx > 0 && unicode.IsSpace(rune(text[sentenceIdx-1])) {
				sentenceIdx--
			}
			if uint(len(t.EncodeBody(text[sentenceIdx:]))) > limit {
				break
			}
			begin = sentenceIdx
			searchEnd = sentenceIdx
		}
		encoded := t.EncodeBody(text[begin:])
		return &encoded, nil
	case TrimBottom:
		// Grow a prefix of whole sentences.
		end := 0
		searchBegin := 0
		for _, sentence := range sentences {
			sentenceIdx := strings.Index(text[searchBegin:], sentence.Text)
			if sentenceIdx < 0 {
				break
			}
			sentenceEnd := searchBegin + sentenceIdx + len(sentence.Text)
			if sentenceEnd < len(text) && text[sentenceEnd] == '\n' {
				sentenceEnd++
			}
			if uint(len(t.EncodeBody(text[:sentenceEnd]))) > limit {
				break
			}
			end = sentenceEnd
			searchBegin = sentenceEnd
		}
		encoded := t.EncodeBody(text[:end])
		return &encoded, nil
	}
	return &trimmed, nil
}
