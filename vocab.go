package llama_bpe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/mohdsm81/llama_bpe/resources"
	"github.com/mohdsm81/llama_bpe/types"
)

// FallbackToken is returned by IdOf for byte sequences that were never
// registered.
const FallbackToken types.Token = 0

type VocabEntry struct {
	Bytes []byte
	Score float32
}

// Vocabulary is an ordered list of scored tokens; a token's id is its
// index. It is read-only once loaded and safe for concurrent readers, but
// Add must not race with them.
type Vocabulary struct {
	entries        []VocabEntry
	lookup         map[string]types.Token
	maxTokenLength int32
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{lookup: make(map[string]types.Token)}
}

// LoadVocabulary parses a binary vocabulary held in memory. Token bytes
// are copied, so data may be released afterwards.
func LoadVocabulary(data []byte) (*Vocabulary, error) {
	return ReadVocabulary(bytes.NewReader(data))
}

// ReadVocabulary parses the little endian layout
//
//	int32 max_token_length
//	repeated { float32 score; int32 len; byte[len] token }
//
// until r is exhausted at a record boundary.
func ReadVocabulary(r io.Reader) (*Vocabulary, error) {
	vocab := NewVocabulary()
	var offset int64
	var maxTokenLength int32
	if err := binary.Read(r, binary.LittleEndian, &maxTokenLength); err != nil {
		return nil, &FormatError{offset, "max_token_length", eofUnexpected(err)}
	}
	vocab.maxTokenLength = maxTokenLength
	offset += 4

	// Grows with the bytes actually read, so a corrupt length cannot force
	// a large allocation.
	var tokenBuf bytes.Buffer
	for {
		recordStart := offset
		var score float32
		if err := binary.Read(r, binary.LittleEndian, &score); err == io.EOF {
			break
		} else if err != nil {
			return nil, &FormatError{recordStart, "score", eofUnexpected(err)}
		}
		var tokenLen int32
		if err := binary.Read(r, binary.LittleEndian, &tokenLen); err != nil {
			return nil, &FormatError{recordStart, "token length",
				eofUnexpected(err)}
		}
		if tokenLen < 0 {
			return nil, &FormatError{Offset: recordStart,
				Reason: "negative token length"}
		}
		if sized, ok := r.(interface{ Len() int }); ok &&
			int64(tokenLen) > int64(sized.Len()) {
			return nil, &FormatError{recordStart, "token bytes",
				io.ErrUnexpectedEOF}
		}
		// Exactly len bytes; no trailing NUL is counted or stored.
		tokenBuf.Reset()
		if _, err := io.CopyN(&tokenBuf, r, int64(tokenLen)); err != nil {
			return nil, &FormatError{recordStart, "token bytes",
				eofUnexpected(err)}
		}
		offset += 8 + int64(tokenLen)
		vocab.Add(tokenBuf.Bytes(), score)
	}
	slog.Debug("loaded vocabulary", "tokens", len(vocab.entries),
		"max_token_length", maxTokenLength)
	return vocab, nil
}

// A clean EOF inside a record still means the record was cut short.
func eofUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteTo serializes the vocabulary in the layout read by ReadVocabulary.
func (v *Vocabulary) WriteTo(w io.Writer) (int64, error) {
	pieces := make([]resources.Piece, len(v.entries))
	for idx, entry := range v.entries {
		pieces[idx] = resources.Piece{Bytes: entry.Bytes, Score: entry.Score}
	}
	return resources.WriteVocabBin(w, v.maxTokenLength, pieces)
}

// Add appends a token and returns its id. The lookup keeps pointing at the
// first registration of a byte sequence.
func (v *Vocabulary) Add(token []byte, score float32) types.Token {
	if v.lookup == nil {
		v.lookup = make(map[string]types.Token)
	}
	id := types.Token(len(v.entries))
	v.entries = append(v.entries, VocabEntry{
		Bytes: bytes.Clone(token),
		Score: score,
	})
	if _, ok := v.lookup[string(token)]; !ok {
		v.lookup[string(token)] = id
	}
	if len(token) > int(v.maxTokenLength) && len(token) <= math.MaxInt32 {
		v.maxTokenLength = int32(len(token))
	}
	return id
}

// Lookup returns the id registered for token.
func (v *Vocabulary) Lookup(token []byte) (types.Token, bool) {
	id, ok := v.lookup[string(token)]
	return id, ok
}

// IdOf returns the id registered for token, or FallbackToken.
func (v *Vocabulary) IdOf(token []byte) types.Token {
	if id, ok := v.lookup[string(token)]; ok {
		return id
	}
	return FallbackToken
}

func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// MaxTokenLength is the header value, raised by any longer Add.
func (v *Vocabulary) MaxTokenLength() int {
	return int(v.maxTokenLength)
}

func (v *Vocabulary) inRange(id types.Token) bool {
	return id >= 0 && id < types.Token(len(v.entries))
}

func (v *Vocabulary) Entry(id types.Token) (VocabEntry, error) {
	if !v.inRange(id) {
		return VocabEntry{}, &OutOfRangeError{id, len(v.entries)}
	}
	return v.entries[id], nil
}

func (v *Vocabulary) Score(id types.Token) (float32, error) {
	entry, err := v.Entry(id)
	return entry.Score, err
}

// DecodeIds concatenates the bytes of each token in order.
func (v *Vocabulary) DecodeIds(ids types.Tokens) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		if !v.inRange(id) {
			return "", &OutOfRangeError{id, len(v.entries)}
		}
		sb.Write(v.entries[id].Bytes)
	}
	return sb.String(), nil
}

func (v *Vocabulary) lookupString(token string) (types.Token, bool) {
	id, ok := v.lookup[token]
	return id, ok
}
