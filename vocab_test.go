package llama_bpe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohdsm81/llama_bpe/types"
)

type testRecord struct {
	score float32
	token string
}

func encodeVocab(maxLen int32, records ...testRecord) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, maxLen)
	for _, record := range records {
		binary.Write(&buf, binary.LittleEndian, record.score)
		binary.Write(&buf, binary.LittleEndian, int32(len(record.token)))
		buf.WriteString(record.token)
	}
	return buf.Bytes()
}

func TestLoadVocabulary(t *testing.T) {
	data := encodeVocab(2,
		testRecord{0, "<unk>"},
		testRecord{1, "a"},
		testRecord{1, "b"},
		testRecord{5, "ab"},
	)
	vocab, err := LoadVocabulary(data)
	require.NoError(t, err)
	assert.Equal(t, 4, vocab.Len())
	assert.Equal(t, 5, vocab.MaxTokenLength())

	entry, err := vocab.Entry(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), entry.Bytes)
	assert.Equal(t, float32(5), entry.Score)

	id, ok := vocab.Lookup([]byte("b"))
	assert.True(t, ok)
	assert.Equal(t, types.Token(2), id)
}

func TestLoadVocabulary_TokenContentIsExact(t *testing.T) {
	vocab, err := LoadVocabulary(encodeVocab(3, testRecord{-1, "abc"}))
	require.NoError(t, err)
	entry, err := vocab.Entry(0)
	require.NoError(t, err)
	assert.Len(t, entry.Bytes, 3)
	assert.Equal(t, types.Token(0), vocab.IdOf([]byte("abc")))
	_, ok := vocab.Lookup([]byte("abc\x00"))
	assert.False(t, ok)
}

func TestLoadVocabulary_HeaderOnly(t *testing.T) {
	vocab, err := LoadVocabulary(encodeVocab(7))
	require.NoError(t, err)
	assert.Equal(t, 0, vocab.Len())
	assert.Equal(t, 7, vocab.MaxTokenLength())
}

func TestLoadVocabulary_Truncated(t *testing.T) {
	full := encodeVocab(4,
		testRecord{1.5, "abcd"},
		testRecord{2.5, "ef"},
	)
	// Every cut that does not land on a record boundary must fail.
	boundaries := map[int]bool{4: true, 4 + 8 + 4: true, len(full): true}
	for cut := 0; cut < len(full); cut++ {
		_, err := LoadVocabulary(full[:cut])
		if boundaries[cut] {
			assert.NoError(t, err, "cut at %d", cut)
			continue
		}
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, "cut at %d", cut)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
	}
}

func TestLoadVocabulary_TruncatedOffset(t *testing.T) {
	full := encodeVocab(4, testRecord{1, "abcd"}, testRecord{2, "ef"})
	_, err := LoadVocabulary(full[:len(full)-1])
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, int64(16), formatErr.Offset)
	assert.Equal(t, "token bytes", formatErr.Reason)
}

func TestLoadVocabulary_NegativeLength(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(1))
	binary.Write(&buf, binary.LittleEndian, float32(0))
	binary.Write(&buf, binary.LittleEndian, int32(-3))
	_, err := LoadVocabulary(buf.Bytes())
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, int64(4), formatErr.Offset)
	assert.Nil(t, formatErr.Err)
}

func hugeLengthRecord() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(0))
	binary.Write(&buf, binary.LittleEndian, float32(0))
	binary.Write(&buf, binary.LittleEndian, int32(math.MaxInt32))
	return buf.Bytes()
}

func TestLoadVocabulary_LengthPastEnd(t *testing.T) {
	data := hugeLengthRecord()
	readers := map[string]func() (*Vocabulary, error){
		"LoadVocabulary": func() (*Vocabulary, error) {
			return LoadVocabulary(data)
		},
		// Hides Len() so the streaming path is taken.
		"ReadVocabulary": func() (*Vocabulary, error) {
			return ReadVocabulary(io.MultiReader(bytes.NewReader(data)))
		},
	}
	for name, read := range readers {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := read()
		runtime.ReadMemStats(&after)

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, name)
		assert.Equal(t, int64(4), formatErr.Offset, name)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, name)
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20),
			name)
	}
}

func TestVocabulary_WriteToRoundTrip(t *testing.T) {
	data := encodeVocab(3,
		testRecord{0, "<unk>"},
		testRecord{-1.25, "x"},
		testRecord{float32(math.Inf(-1)), "yz"},
		testRecord{0.5, ""},
	)
	vocab, err := LoadVocabulary(data)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := vocab.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	reread, err := ReadVocabulary(&buf)
	require.NoError(t, err)
	assert.Equal(t, vocab.entries, reread.entries)
	assert.Equal(t, vocab.MaxTokenLength(), reread.MaxTokenLength())
}

func TestVocabulary_FirstRegistrationWins(t *testing.T) {
	vocab := NewVocabulary()
	first := vocab.Add([]byte("dup"), 1)
	second := vocab.Add([]byte("dup"), 9)
	assert.Equal(t, types.Token(0), first)
	assert.Equal(t, types.Token(1), second)
	assert.Equal(t, 2, vocab.Len())
	assert.Equal(t, first, vocab.IdOf([]byte("dup")))

	score, err := vocab.Score(second)
	require.NoError(t, err)
	assert.Equal(t, float32(9), score)
}

func TestVocabulary_AddCopiesBytes(t *testing.T) {
	vocab := NewVocabulary()
	token := []byte("ab")
	vocab.Add(token, 0)
	token[0] = 'z'
	entry, err := vocab.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), entry.Bytes)
	assert.Equal(t, 2, vocab.MaxTokenLength())
}

func TestVocabulary_IdOfFallback(t *testing.T) {
	vocab := NewVocabulary()
	vocab.Add([]byte("<unk>"), 0)
	vocab.Add([]byte("q"), 0)
	assert.Equal(t, FallbackToken, vocab.IdOf([]byte("missing")))
	assert.Equal(t, types.Token(1), vocab.IdOf([]byte("q")))
}

func TestVocabulary_DecodeIdsOutOfRange(t *testing.T) {
	vocab := NewVocabulary()
	vocab.Add([]byte("a"), 0)
	vocab.Add([]byte("b"), 0)

	decoded, err := vocab.DecodeIds(types.Tokens{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "bab", decoded)

	for _, id := range []types.Token{2, -1, 1 << 40} {
		_, err := vocab.DecodeIds(types.Tokens{0, id})
		var rangeErr *OutOfRangeError
		require.True(t, errors.As(err, &rangeErr), "id %d", id)
		assert.Equal(t, id, rangeErr.Id)
		assert.Equal(t, 2, rangeErr.Size)
	}
	_, err = vocab.Entry(2)
	assert.Error(t, err)
}
