package resources

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

const spmWhitespaceSep = "▁"

// ConvertedModel is a SentencePiece model reduced to binary vocabulary
// pieces.
type ConvertedModel struct {
	Pieces   []Piece
	Specials []string
	BosToken string
	EosToken string
}

// ConvertSentencePiece converts the pieces of a serialized SentencePiece
// ModelProto. Byte pieces such as `<0x0A>` become the raw byte, the
// whitespace marker becomes a space, and control and user defined pieces
// are collected as specials, from which the conventional BOS and EOS
// markers are picked.
func ConvertSentencePiece(modelBytes []byte) (*ConvertedModel, error) {
	var model sentencepiece.ModelProto
	if err := proto.Unmarshal(modelBytes, &model); err != nil {
		return nil, fmt.Errorf("unable to unmarshal sentencepiece model: %w",
			err)
	}
	spaceReplacer := strings.NewReplacer(spmWhitespaceSep, " ")
	converted := &ConvertedModel{
		Pieces: make([]Piece, 0, len(model.GetPieces())),
	}
	for pieceIdx, piece := range model.GetPieces() {
		repr := piece.GetPiece()
		switch piece.GetType() {
		case sentencepiece.ModelProto_SentencePiece_BYTE:
			if len(repr) != 6 || !strings.HasPrefix(repr, "<0x") {
				return nil, fmt.Errorf("piece %d: malformed byte piece %q",
					pieceIdx, repr)
			}
			decoded, err := hex.DecodeString(repr[3:5])
			if err != nil {
				return nil, fmt.Errorf("piece %d: %w", pieceIdx, err)
			}
			repr = string(decoded)
		case sentencepiece.ModelProto_SentencePiece_CONTROL,
			sentencepiece.ModelProto_SentencePiece_USER_DEFINED:
			converted.Specials = append(converted.Specials, repr)
		default:
			repr = spaceReplacer.Replace(repr)
		}
		converted.Pieces = append(converted.Pieces, Piece{
			Bytes: []byte(repr),
			Score: piece.GetScore(),
		})
	}
	for _, special := range converted.Specials {
		switch special {
		case "<s>", "<|begin_of_text|>":
			converted.BosToken = special
		case "</s>", "<|end_of_text|>":
			converted.EosToken = special
		}
	}
	return converted, nil
}

// ConvertSentencePieceFile writes `tokenizer.bin` and
// `tokenizer_config.json` next to the model at modelPath.
func ConvertSentencePieceFile(modelPath string) (*ConvertedModel, error) {
	modelBytes, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}
	converted, err := ConvertSentencePiece(modelBytes)
	if err != nil {
		return nil, err
	}
	outputPath := path.Dir(modelPath)

	vocabFile, err := os.Create(path.Join(outputPath, VocabFile))
	if err != nil {
		return nil, err
	}
	written, err := WriteVocabBin(vocabFile,
		MaxPieceLength(converted.Pieces), converted.Pieces)
	if closeErr := vocabFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("error writing `%s`: %w", VocabFile, err)
	}
	log.Printf("Wrote %d pieces to %s (%s)", len(converted.Pieces),
		path.Join(outputPath, VocabFile), humanize.Bytes(uint64(written)))

	config := TokenizerConfig{}
	if converted.BosToken != "" {
		bos := SpecialToken(converted.BosToken)
		config.BosToken = &bos
	}
	if converted.EosToken != "" {
		eos := SpecialToken(converted.EosToken)
		config.EosToken = &eos
	}
	for _, special := range converted.Specials {
		config.SpecialTokens = append(config.SpecialTokens,
			SpecialToken(special))
	}
	configBytes, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path.Join(outputPath, ConfigFile), configBytes,
		0644); err != nil {
		return nil, err
	}
	return converted, nil
}
