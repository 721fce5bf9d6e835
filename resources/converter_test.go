package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

func testModel(t *testing.T) []byte {
	piece := func(repr string, score float32,
		pieceType sentencepiece.ModelProto_SentencePiece_Type,
	) *sentencepiece.ModelProto_SentencePiece {
		return &sentencepiece.ModelProto_SentencePiece{
			Piece: proto.String(repr),
			Score: proto.Float32(score),
			Type:  pieceType.Enum(),
		}
	}
	model := &sentencepiece.ModelProto{
		Pieces: []*sentencepiece.ModelProto_SentencePiece{
			piece("<unk>", 0, sentencepiece.ModelProto_SentencePiece_UNKNOWN),
			piece("<s>", 0, sentencepiece.ModelProto_SentencePiece_CONTROL),
			piece("</s>", 0, sentencepiece.ModelProto_SentencePiece_CONTROL),
			piece("<0x0A>", 0, sentencepiece.ModelProto_SentencePiece_BYTE),
			piece("▁the", -1, sentencepiece.ModelProto_SentencePiece_NORMAL),
			piece("<|eot_id|>", 0,
				sentencepiece.ModelProto_SentencePiece_USER_DEFINED),
		},
	}
	modelBytes, err := proto.Marshal(model)
	require.NoError(t, err)
	return modelBytes
}

func TestConvertSentencePiece(t *testing.T) {
	converted, err := ConvertSentencePiece(testModel(t))
	require.NoError(t, err)
	assert.Equal(t, []Piece{
		{Bytes: []byte("<unk>"), Score: 0},
		{Bytes: []byte("<s>"), Score: 0},
		{Bytes: []byte("</s>"), Score: 0},
		{Bytes: []byte("\n"), Score: 0},
		{Bytes: []byte(" the"), Score: -1},
		{Bytes: []byte("<|eot_id|>"), Score: 0},
	}, converted.Pieces)
	assert.Equal(t, []string{"<s>", "</s>", "<|eot_id|>"}, converted.Specials)
	assert.Equal(t, "<s>", converted.BosToken)
	assert.Equal(t, "</s>", converted.EosToken)
}

func TestConvertSentencePiece_Malformed(t *testing.T) {
	_, err := ConvertSentencePiece([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestConvertSentencePieceFile(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, ModelFile)
	require.NoError(t, os.WriteFile(modelPath, testModel(t), 0644))

	_, err := ConvertSentencePieceFile(modelPath)
	require.NoError(t, err)

	rsrcs, err := ResolveResources(dir, dir, "", RESOURCE_OPTIONAL)
	require.NoError(t, err)
	defer rsrcs.Cleanup()
	config, err := rsrcs.ResolveConfig()
	require.NoError(t, err)
	assert.Equal(t, SpecialToken("<s>"), *config.BosToken)
	assert.Equal(t, SpecialToken("</s>"), *config.EosToken)
	assert.Len(t, config.SpecialTokens, 3)
	assert.Equal(t, int64(4+6*8+5+3+4+1+4+10), int64(len(*(*rsrcs)[VocabFile].Data)))
}
