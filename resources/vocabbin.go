package resources

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Piece is one record of a binary vocabulary.
type Piece struct {
	Bytes []byte
	Score float32
}

// WriteVocabBin serializes pieces in the little endian layout
//
//	int32 max_token_length
//	repeated { float32 score; int32 len; byte[len] token }
//
// and returns the number of bytes written.
func WriteVocabBin(w io.Writer, maxTokenLength int32,
	pieces []Piece) (int64, error) {
	bw := bufio.NewWriter(w)
	written := int64(0)
	if err := binary.Write(bw, binary.LittleEndian, maxTokenLength); err != nil {
		return written, err
	}
	written += 4
	for idx, piece := range pieces {
		if err := binary.Write(bw, binary.LittleEndian, piece.Score); err != nil {
			return written, fmt.Errorf("piece %d: %w", idx, err)
		}
		if err := binary.Write(bw, binary.LittleEndian,
			int32(len(piece.Bytes))); err != nil {
			return written, fmt.Errorf("piece %d: %w", idx, err)
		}
		if _, err := bw.Write(piece.Bytes); err != nil {
			return written, fmt.Errorf("piece %d: %w", idx, err)
		}
		written += 8 + int64(len(piece.Bytes))
	}
	return written, bw.Flush()
}

// MaxPieceLength is the longest piece in bytes.
func MaxPieceLength(pieces []Piece) int32 {
	maxLen := 0
	for _, piece := range pieces {
		maxLen = max(maxLen, len(piece.Bytes))
	}
	return int32(maxLen)
}
