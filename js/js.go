package main

//go:generate gopherjs build --minify

import (
	"log"

	"github.com/gopherjs/gopherjs/js"

	"github.com/mohdsm81/llama_bpe"
)

var tokenizer *llama_bpe.Tokenizer

// LoadVocabulary replaces the active tokenizer with one built from a binary
// vocabulary. It returns an error message, or the empty string on success.
func LoadVocabulary(arr []byte) string {
	vocab, err := llama_bpe.LoadVocabulary(arr)
	if err != nil {
		return err.Error()
	}
	loaded, err := llama_bpe.NewTokenizer(vocab, llama_bpe.DefaultConfig())
	if err != nil {
		return err.Error()
	}
	tokenizer = loaded
	log.Printf("Loaded vocabulary of %d tokens", vocab.Len())
	return ""
}

// Tokenize returns uint32 ids; GopherJS would hand int64 tokens to
// JavaScript as {$high, $low} objects.
func Tokenize(text string, bos string, eos string) []uint32 {
	if tokenizer == nil {
		return nil
	}
	tokens := tokenizer.Encode(text,
		llama_bpe.EncodeOptions{Bos: bos, Eos: eos})
	ids, err := tokens.ToUint32s()
	if err != nil {
		log.Printf("tokenize: %v", err)
		return nil
	}
	return ids
}

func Decode(arr []byte) string {
	if tokenizer == nil {
		return ""
	}
	decoded, err := tokenizer.DecodeBuffer(&arr)
	if err != nil {
		log.Printf("decode: %v", err)
		return ""
	}
	return decoded
}

func init() {
	js.Module.Get("exports").Set("loadVocabulary", LoadVocabulary)
	js.Module.Get("exports").Set("decode", Decode)
	js.Module.Get("exports").Set("tokenize", Tokenize)
	log.Printf("llama BPE tokenizer loaded")
}

func main() {

}
