package main

/*
#include "library.h"
*/
import "C"
import (
	"sync"
	"time"
	"unsafe"

	"github.com/mohdsm81/llama_bpe"
	"github.com/mohdsm81/llama_bpe/types"
)

var (
	tokenizersMu sync.Mutex
	tokenizers   = make(map[string]*llama_bpe.Tokenizer)
)

//export initTokenizer
// initTokenizer accepts a vocabulary id as a C string, and if it does not
// exist in the global tokenizers map, initializes a tokenizer for that
// vocabulary.
func initTokenizer(vocab_id *C.char) bool {
	_, err := getTokenizer(C.GoString(vocab_id))
	return err == nil
}

//export initTokenizerBuffer
// initTokenizerBuffer registers a tokenizer under name from an in-memory
// binary vocabulary, using the default configuration.
func initTokenizerBuffer(name *C.char, buf *C.char, sz C.size_t) bool {
	data := C.GoBytes(unsafe.Pointer(buf), C.int(sz))
	vocab, err := llama_bpe.LoadVocabulary(data)
	if err != nil {
		return false
	}
	tokenizer, err := llama_bpe.NewTokenizer(vocab, llama_bpe.DefaultConfig())
	if err != nil {
		return false
	}
	tokenizersMu.Lock()
	tokenizers[C.GoString(name)] = tokenizer
	tokenizersMu.Unlock()
	return true
}

func getTokenizer(vocabId string) (*llama_bpe.Tokenizer, error) {
	tokenizersMu.Lock()
	defer tokenizersMu.Unlock()
	if tokenizer, ok := tokenizers[vocabId]; ok {
		return tokenizer, nil
	}
	tokenizer, err := llama_bpe.NewTokenizerFromVocabId(vocabId)
	if err != nil {
		return nil, err
	}
	tokenizers[vocabId] = tokenizer
	return tokenizer, nil
}

func mustTokenizer(vocabIdStr *C.char) *llama_bpe.Tokenizer {
	tokenizer, err := getTokenizer(C.GoString(vocabIdStr))
	if err != nil {
		panic(err)
	}
	return tokenizer
}

func toCTokens(encoded types.Tokens) C.Tokens {
	bin, err := encoded.ToBinUint32()
	if err != nil {
		panic(err)
	}
	return C.Tokens{
		tokens: (*C.uint32_t)(C.CBytes(*bin)),
		len:    C.size_t(len(encoded)),
	}
}

//export tokenizeBuffer
// tokenizeBuffer encodes sz bytes at buf without boundary tokens.
func tokenizeBuffer(vocabIdStr *C.char, buf *C.char, sz C.size_t) C.Tokens {
	tokenizer := mustTokenizer(vocabIdStr)
	goBuf := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(sz))
	return toCTokens(tokenizer.EncodeBody(string(goBuf)))
}

//export tokenize
// tokenize accepts a vocabulary and text as a C string, and returns a C.Tokens
// that contains a malloc'ed array of uint32_t tokens along with the number of
// tokens. Boundary tokens follow the tokenizer configuration.
func tokenize(vocabIdStr *C.char, str *C.char) C.Tokens {
	tokenizer := mustTokenizer(vocabIdStr)
	encoded := tokenizer.Encode(C.GoString(str), llama_bpe.EncodeOptions{})
	return toCTokens(encoded)
}

//export decode
// decode accepts a vocabulary id and a C.Tokens struct, and returns a malloc'ed
// C.char* containing the decoded string, or NULL if a token is out of range.
func decode(vocabIdStr *C.char, tokens *C.Tokens) *C.char {
	tokenizer := mustTokenizer(vocabIdStr)
	tokensArr := C.GoBytes(unsafe.Pointer(tokens.tokens),
		C.int(tokens.len*types.TokenSize32))
	decoded, err := tokenizer.Decode(*types.TokensFromBin32(&tokensArr))
	if err != nil {
		return nil
	}
	return C.CString(decoded)
}

// testBuffer tests the C interface to the tokenizer, and is here rather than
// in the test package as the test package is incompatible with CGo.
func testBuffer(vocab string, buf []byte) (time.Duration, uint64) {
	vocabC := C.CString(vocab)
	defer C.free(unsafe.Pointer(vocabC))
	corpusBuff := (*C.char)(C.CBytes(buf))
	defer C.free(unsafe.Pointer(corpusBuff))
	start := time.Now()
	tokens := tokenizeBuffer(vocabC, corpusBuff, C.size_t(len(buf)))
	duration := time.Since(start)
	C.free(unsafe.Pointer(tokens.tokens))
	return duration, uint64(tokens.len)
}

// testRoundTrip tokenizes and decodes text through the exported functions.
func testRoundTrip(vocab string, text string) (uint64, string) {
	vocabC := C.CString(vocab)
	defer C.free(unsafe.Pointer(vocabC))
	textC := C.CString(text)
	defer C.free(unsafe.Pointer(textC))
	tokens := tokenize(vocabC, textC)
	defer C.free(unsafe.Pointer(tokens.tokens))
	decoded := decode(vocabC, &tokens)
	if decoded == nil {
		return uint64(tokens.len), ""
	}
	defer C.free(unsafe.Pointer(decoded))
	return uint64(tokens.len), C.GoString(decoded)
}

// wrapInitTokenizer is a wrapper around initTokenizer that simulates a C call
// from golang.
func wrapInitTokenizer(vocab_id string) bool {
	vocab_id_str := C.CString(vocab_id)
	defer C.free(unsafe.Pointer(vocab_id_str))
	return initTokenizer(vocab_id_str)
}

func main() {}
