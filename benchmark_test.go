package llama_bpe

import (
	"strings"
	"testing"
	"time"

	"github.com/mohdsm81/llama_bpe/types"
)

var benchCorpus = strings.Repeat(
	"hello world, is that you? The thing is the world and you.\n", 256)

func BenchmarkTokenizer_ToBPE(b *testing.B) {
	b.StopTimer()
	words := strings.SplitAfter(benchCorpus, " ")
	totalTokens := 0
	start := time.Now()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		for _, word := range words {
			totalTokens += len(toyTokenizer.ToBPE(word))
		}
	}
	b.StopTimer()
	elapsed := time.Since(start)
	numBytes := len(benchCorpus) * b.N
	b.ReportMetric(float64(numBytes)/elapsed.Seconds(), "bytes/sec")
	b.ReportMetric(float64(totalTokens)/elapsed.Seconds(), "tokens/sec")
}

func BenchmarkTokenizer_Encode(b *testing.B) {
	b.StopTimer()
	lines := strings.SplitAfter(benchCorpus, "\n")
	var tokenCt int
	start := time.Now()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			tokenCt += len(toyTokenizer.Encode(line, EncodeOptions{}))
		}
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(tokenCt)/elapsed.Seconds(), "tokens/sec")
	// Report on tokenizer LRU cache
	hits, misses := toyTokenizer.CacheStats()
	b.ReportMetric(float64(hits), "lru_hits")
	b.ReportMetric(float64(misses), "lru_misses")
}

func BenchmarkTokenizer_Decode(b *testing.B) {
	b.StopTimer()
	encoded := toyTokenizer.EncodeBody(benchCorpus)
	var decoded string
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		decoded, _ = toyTokenizer.Decode(encoded)
	}
	b.StopTimer()
	b.ReportMetric(float64(len(decoded)), "bytes")
	b.ReportMetric(float64(len(encoded)), "tokens")
}

func BenchmarkTokenizer_EncodeLongFragment(b *testing.B) {
	// A single fragment with no whitespace exercises the queue rather than
	// the cache.
	fragment := strings.Repeat("thethingworld", 512)
	config := toyTokenizer.Config()
	config.CacheSize = 0
	tokenizer, err := NewTokenizer(toyTokenizer.Vocabulary(), config)
	if err != nil {
		b.Fatal(err)
	}
	var tokens types.Tokens
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tokens = tokenizer.EncodeBody(fragment)
	}
	b.ReportMetric(float64(len(tokens)), "tokens")
}
