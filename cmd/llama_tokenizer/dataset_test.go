package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohdsm81/llama_bpe"
	"github.com/mohdsm81/llama_bpe/types"
)

func toyTokenizer(t *testing.T) *llama_bpe.Tokenizer {
	tokenizer, err := llama_bpe.NewToyTokenizer()
	require.NoError(t, err)
	return tokenizer
}

func writeTexts(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		target := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0644))
	}
	return dir
}

func TestGlobTexts(t *testing.T) {
	dir := writeTexts(t, map[string]string{
		"a.txt":          "hello world",
		"nested/b.txt":   "the thing",
		"nested/c/d.txt": "is that you",
		"skip.md":        "not a text",
	})
	pathInfos, err := GlobTexts(dir)
	require.NoError(t, err)
	require.Len(t, pathInfos, 3)

	require.NoError(t, SortPathInfos(pathInfos, "size_descending"))
	assert.Equal(t, int64(len("is that you")), pathInfos[0].Size)

	require.NoError(t, SortPathInfos(pathInfos, "path_ascending"))
	assert.True(t, strings.HasSuffix(pathInfos[0].Path, "a.txt"))

	assert.Error(t, SortPathInfos(pathInfos, "sideways"))

	_, err = GlobTexts(t.TempDir())
	assert.Error(t, err)
}

func TestTokenizeTexts(t *testing.T) {
	dir := writeTexts(t, map[string]string{
		"1.txt": "hello world",
		"2.txt": "the thing",
		"3.txt": "is that you",
	})
	pathInfos, err := GlobTexts(dir)
	require.NoError(t, err)
	require.NoError(t, SortPathInfos(pathInfos, "path_ascending"))

	texts, err := TokenizeTexts(context.Background(), toyTokenizer(t),
		pathInfos, 2, llama_bpe.EncodeOptions{Eos: "</s>"})
	require.NoError(t, err)
	// BOS comes from the toy configuration.
	assert.Equal(t, []types.Tokens{
		{1, 79, 85, 2},
		{1, 68, 100, 2},
		{1, 86, 98, 94, 2},
	}, texts)

	pathInfos = append(pathInfos, PathInfo{Path: filepath.Join(dir, "gone.txt")})
	_, err = TokenizeTexts(context.Background(), toyTokenizer(t), pathInfos,
		2, llama_bpe.EncodeOptions{})
	assert.Error(t, err)
}

func TestWriteContexts(t *testing.T) {
	tokenizer := toyTokenizer(t)
	texts := []types.Tokens{{1, 79, 85, 2}, {1, 68, 100, 2}}

	var stream bytes.Buffer
	total, err := WriteContexts(&stream, tokenizer, texts, 0, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Equal(t, 8*types.TokenSize, stream.Len())

	var contexts bytes.Buffer
	total, err = WriteContexts(&contexts, tokenizer, texts, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	bin := contexts.Bytes()
	assert.Equal(t, types.Tokens{1, 79, 85, 2, 1, 68, 100, 2, 2},
		*types.TokensFromBin32(&bin))
}

func TestRepl(t *testing.T) {
	var out bytes.Buffer
	err := repl(toyTokenizer(t), strings.NewReader("hello world\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 79 85\n")
	assert.Contains(t, out.String(), "|<s>|hello| world")
}

func TestEncodeDecodeCommands(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"encode", "--eos", "</s>", "the thing"})
	require.NoError(t, cli.Execute())
	assert.Equal(t, "1 68 100 2\n", out.String())

	out.Reset()
	cli = NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"encode", "--no-bos", "the thing"})
	require.NoError(t, cli.Execute())
	assert.Equal(t, "68 100\n", out.String())

	out.Reset()
	cli = NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"decode", "79", "85"})
	require.NoError(t, cli.Execute())
	assert.Equal(t, "hello world", out.String())

	binPath := filepath.Join(t.TempDir(), "tokens.bin")
	cli = NewCLI()
	cli.SetArgs([]string{"encode", "-o", binPath, "--uint32", "is that you"})
	require.NoError(t, cli.Execute())

	out.Reset()
	cli = NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"decode", "--uint32", "-i", binPath})
	require.NoError(t, cli.Execute())
	assert.Equal(t, "<s>is that you", out.String())
}
