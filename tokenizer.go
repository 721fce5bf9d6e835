package llama_bpe

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mohdsm81/llama_bpe/arenalist"
	"github.com/mohdsm81/llama_bpe/resources"
	"github.com/mohdsm81/llama_bpe/types"
)

// Tokenizer encodes strings into vocabulary ids by greedy score ordered
// merging and decodes them back. It may be shared between goroutines; each
// Encode call works on its own segment list and merge queue.
type Tokenizer struct {
	vocab        *Vocabulary
	config       Config
	specialsTree *RuneNode
	cache        *lru.ARCCache
	lruHits      atomic.Int64
	lruMisses    atomic.Int64
}

// EncodeOptions names boundary tokens for a single Encode call. Each is
// emitted only if registered in the vocabulary; an empty string falls back
// to the configured token when the matching Add flag is set. NoBos and
// NoEos suppress the boundary token entirely, overriding both.
type EncodeOptions struct {
	Bos   string
	Eos   string
	NoBos bool
	NoEos bool
}

// MaxCachedFragment is the longest fragment, in bytes, kept in the encode
// cache. Longer fragments are usually whole documents.
const MaxCachedFragment = 256

func NewTokenizer(vocab *Vocabulary, config Config) (*Tokenizer, error) {
	if vocab == nil {
		return nil, fmt.Errorf("llama_bpe: nil vocabulary")
	}
	if config.CacheSize < 0 {
		return nil, fmt.Errorf("llama_bpe: negative cache size %d",
			config.CacheSize)
	}
	tokenizer := &Tokenizer{
		vocab:  vocab,
		config: config,
	}
	if len(config.Specials) > 0 {
		tree, missing := createRuneTree(vocab, config.Specials)
		if len(missing) > 0 {
			slog.Debug("special tokens not in vocabulary", "specials", missing)
		}
		tokenizer.specialsTree = tree
	}
	if config.CacheSize > 0 {
		cache, err := lru.NewARC(config.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("llama_bpe: creating encode cache: %w", err)
		}
		tokenizer.cache = cache
	}
	return tokenizer, nil
}

// NewTokenizerFromVocabId resolves vocabId through the resources package
// (embedded id, local directory or URL) and builds a Tokenizer from its
// `tokenizer.bin` and optional `tokenizer_config.json`.
func NewTokenizerFromVocabId(vocabId string) (*Tokenizer, error) {
	rsrcConfig, rsrcs, err := resources.ResolveVocabId(vocabId, "")
	if err != nil {
		return nil, err
	}
	defer rsrcs.Cleanup()
	config, err := ConfigFromResources(rsrcConfig)
	if err != nil {
		return nil, err
	}
	vocab, err := LoadVocabulary(*(*rsrcs)[resources.VocabFile].Data)
	if err != nil {
		return nil, err
	}
	return NewTokenizer(vocab, config)
}

// NewToyTokenizer returns the small embedded `llama-toy` tokenizer.
func NewToyTokenizer() (*Tokenizer, error) {
	return NewTokenizerFromVocabId("llama-toy")
}

func (t *Tokenizer) Vocabulary() *Vocabulary {
	return t.vocab
}

func (t *Tokenizer) Config() Config {
	return t.config
}

// CacheStats reports encode cache hits and misses.
func (t *Tokenizer) CacheStats() (hits, misses int64) {
	return t.lruHits.Load(), t.lruMisses.Load()
}

// EncodeInput is Encode for list shaped input. Only a single string is
// accepted.
func (t *Tokenizer) EncodeInput(input []string,
	opts EncodeOptions) (types.Tokens, error) {
	if len(input) != 1 {
		return nil, &UnsupportedOperationError{Op: "encode", Count: len(input)}
	}
	return t.Encode(input[0], opts), nil
}

// Encode converts text into token ids, optionally enclosed by BOS and EOS.
func (t *Tokenizer) Encode(text string, opts EncodeOptions) types.Tokens {
	ids := make(types.Tokens, 0, len(text)+2)
	if bos, ok := t.boundaryToken(opts.Bos, t.config.Bos,
		t.config.AddBos, opts.NoBos); ok {
		ids = append(ids, bos)
	}
	ids = t.appendBody(ids, text)
	if eos, ok := t.boundaryToken(opts.Eos, t.config.Eos,
		t.config.AddEos, opts.NoEos); ok {
		ids = append(ids, eos)
	}
	return ids
}

// EncodeBody encodes text without boundary tokens.
func (t *Tokenizer) EncodeBody(text string) types.Tokens {
	return t.appendBody(make(types.Tokens, 0, len(text)), text)
}

func (t *Tokenizer) appendBody(ids types.Tokens, text string) types.Tokens {
	for _, frag := range t.specialsTree.splitSpecials(text) {
		if frag.special {
			ids = append(ids, frag.token)
			continue
		}
		ids = append(ids, t.encodeFragment(frag.text)...)
	}
	return ids
}

func (t *Tokenizer) boundaryToken(requested, configured string,
	add, suppress bool) (types.Token, bool) {
	if suppress {
		return 0, false
	}
	token := requested
	if token == "" && add {
		token = configured
	}
	if token == "" {
		return 0, false
	}
	return t.vocab.lookupString(token)
}

func (t *Tokenizer) encodeFragment(text string) types.Tokens {
	if text == "" {
		return nil
	}
	if t.cache == nil || len(text) > MaxCachedFragment {
		return t.ToBPE(text)
	}
	if lookup, ok := t.cache.Get(text); ok {
		t.lruHits.Add(1)
		return lookup.(types.Tokens)
	}
	t.lruMisses.Add(1)
	tokens := t.ToBPE(text)
	t.cache.Add(text, slices.Clip(tokens))
	return tokens
}

// must treats errors from the segment list or queue as broken invariants
// of the merge loop.
func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("llama_bpe: merge loop invariant violated: %v", err))
	}
}

// ToBPE runs the merge loop over text alone, without specials, cache or
// boundary tokens.
func (t *Tokenizer) ToBPE(text string) types.Tokens {
	segments := t.splitUnits(text)
	queue := NewMergeQueue()

	if head, ok := segments.Head(); ok {
		prev := head
		for id, ok := segments.Next(head); ok; id, ok = segments.Next(id) {
			t.pushCandidate(segments, queue, prev, id)
			prev = id
		}
	}

	for !queue.IsEmpty() {
		candidate, err := queue.Pop()
		must(err)
		if !isCurrent(segments, candidate) {
			continue
		}
		left, err := segments.Get(candidate.Left)
		must(err)
		right, err := segments.Get(candidate.Right)
		must(err)
		must(segments.Set(candidate.Left, left+right))
		must(segments.Remove(candidate.Right))

		if l, ok := segments.Prev(candidate.Left); ok {
			t.pushCandidate(segments, queue, l, candidate.Left)
		}
		if r, ok := segments.Next(candidate.Left); ok {
			t.pushCandidate(segments, queue, candidate.Left, r)
		}
	}

	tokens := make(types.Tokens, 0, segments.Len())
	for _, segment := range segments.Values() {
		token, ok := t.vocab.lookupString(segment)
		if !ok {
			slog.Debug("segment not in vocabulary, using fallback",
				"segment", segment, "token", FallbackToken)
			token = FallbackToken
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// splitUnits builds the initial segment list, one node per byte or rune.
func (t *Tokenizer) splitUnits(text string) *arenalist.List[string] {
	segments := arenalist.New[string](len(text))
	switch t.config.Unit {
	case SplitRunes:
		for idx := 0; idx < len(text); {
			_, size := utf8.DecodeRuneInString(text[idx:])
			segments.Append(text[idx : idx+size])
			idx += size
		}
	default:
		for idx := 0; idx < len(text); idx++ {
			segments.Append(text[idx : idx+1])
		}
	}
	return segments
}

// pushCandidate queues the merge of left and right if their concatenation
// is a registered token.
func (t *Tokenizer) pushCandidate(segments *arenalist.List[string],
	queue *MergeQueue, left, right arenalist.NodeID) {
	leftSeg, err := segments.Get(left)
	must(err)
	rightSeg, err := segments.Get(right)
	must(err)
	merged := leftSeg + rightSeg
	token, ok := t.vocab.lookupString(merged)
	if !ok {
		return
	}
	queue.Push(MergeCandidate{
		Left:     left,
		Right:    right,
		Score:    t.vocab.entries[token].Score,
		Checksum: len(merged),
	})
}

// isCurrent reports whether candidate still describes two live adjacent
// segments whose merged length matches its checksum.
func isCurrent(segments *arenalist.List[string],
	candidate MergeCandidate) bool {
	if !segments.Contains(candidate.Left) ||
		!segments.Contains(candidate.Right) {
		return false
	}
	if next, ok := segments.Next(candidate.Left); !ok ||
		next != candidate.Right {
		return false
	}
	left, _ := segments.Get(candidate.Left)
	right, _ := segments.Get(candidate.Right)
	return len(left)+len(right) == candidate.Checksum
}

// Get looks up text in the vocabulary and returns its id, or nil if text is
// not a registered token.
func (t *Tokenizer) Get(text string) *types.Token {
	if token, ok := t.vocab.lookupString(text); !ok {
		return nil
	} else {
		return &token
	}
}

// Decode concatenates the bytes of each id in order.
func (t *Tokenizer) Decode(ids types.Tokens) (string, error) {
	return t.vocab.DecodeIds(ids)
}

// DecodeBuffer decodes little endian uint16 tokens.
func (t *Tokenizer) DecodeBuffer(encoded *[]byte) (string, error) {
	return t.Decode(*types.TokensFromBin(encoded))
}

// EncodeBuffer encodes a UTF-8 buffer, without boundary tokens, into little
// endian uint16 tokens.
func (t *Tokenizer) EncodeBuffer(buffer *[]byte) (*[]byte, error) {
	tokens := t.EncodeBody(string(*buffer))
	return tokens.ToBinUint16()
}
