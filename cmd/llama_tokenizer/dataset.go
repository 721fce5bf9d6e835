package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/yargevad/filepathx"
	"golang.org/x/sync/errgroup"

	"github.com/mohdsm81/llama_bpe"
	"github.com/mohdsm81/llama_bpe/types"
)

type PathInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// GlobTexts
// Given a directory path, recursively finds all `.txt` files, returning a
// slice of PathInfo.
func GlobTexts(dirPath string) (pathInfos []PathInfo, err error) {
	textPaths, err := filepathx.Glob(dirPath + "/**/*.txt")
	if err != nil {
		return nil, err
	}
	if len(textPaths) == 0 {
		return nil, fmt.Errorf("%s does not contain any .txt files", dirPath)
	}
	pathInfos = make([]PathInfo, len(textPaths))
	for matchIdx, currPath := range textPaths {
		stat, statErr := os.Stat(currPath)
		if statErr != nil {
			return nil, statErr
		}
		pathInfos[matchIdx] = PathInfo{
			Path:    currPath,
			Size:    stat.Size(),
			ModTime: stat.ModTime(),
		}
	}
	return pathInfos, nil
}

// SortPathInfos reorders pathInfos in place. reorder is one of ``,
// `size_ascending`, `size_descending`, `path_ascending`, `path_descending`
// or `shuffle`.
func SortPathInfos(pathInfos []PathInfo, reorder string) error {
	switch reorder {
	case "":
	case "size_ascending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size < pathInfos[j].Size
		})
	case "size_descending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size > pathInfos[j].Size
		})
	case "path_ascending":
		sort.Slice(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path < pathInfos[j].Path
		})
	case "path_descending":
		sort.Slice(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path > pathInfos[j].Path
		})
	case "shuffle":
		rand.Shuffle(len(pathInfos), func(i, j int) {
			pathInfos[i], pathInfos[j] = pathInfos[j], pathInfos[i]
		})
	default:
		return fmt.Errorf("invalid reorder specification %q", reorder)
	}
	return nil
}

// TokenizeTexts encodes every file with up to workers concurrent Encode
// calls. Results keep the order of pathInfos.
func TokenizeTexts(ctx context.Context, tokenizer *llama_bpe.Tokenizer,
	pathInfos []PathInfo, workers int,
	opts llama_bpe.EncodeOptions) ([]types.Tokens, error) {
	results := make([]types.Tokens, len(pathInfos))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for idx, pathInfo := range pathInfos {
		idx, pathInfo := idx, pathInfo
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := os.ReadFile(pathInfo.Path)
			if err != nil {
				return err
			}
			results[idx] = tokenizer.Encode(string(text), opts)
			log.Printf("Tokenized %s: %d tokens", pathInfo.Path,
				len(results[idx]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// WriteContexts writes the tokenized texts back to back. With a positive
// contextSize the stream is cut into contexts of exactly contextSize
// tokens, each ending on a complete rune and padded with padToken.
// It returns the number of tokens written, padding included.
func WriteContexts(w io.Writer, tokenizer *llama_bpe.Tokenizer,
	texts []types.Tokens, contextSize int, padToken types.Token,
	useUint32 bool) (int, error) {
	stream := make(types.Tokens, 0)
	for _, text := range texts {
		stream = append(stream, text...)
	}
	bw := bufio.NewWriter(w)
	written := 0
	writeTokens := func(tokens types.Tokens) error {
		bin, err := tokens.ToBin(useUint32)
		if err != nil {
			return err
		}
		if _, err := bw.Write(*bin); err != nil {
			return err
		}
		written += len(tokens)
		return nil
	}
	if contextSize <= 0 {
		if err := writeTokens(stream); err != nil {
			return written, err
		}
		return written, bw.Flush()
	}
	for len(stream) > 0 {
		chunk, endAt := tokenizer.AlignAndSizeTokens(&stream, contextSize)
		if endAt == 0 {
			// No rune boundary inside the window, cut it hard.
			endAt = min(contextSize, len(stream))
			chunk = append(types.Tokens(nil), stream[:endAt]...)
		}
		for len(chunk) < contextSize {
			chunk = append(chunk, padToken)
		}
		if err := writeTokens(chunk); err != nil {
			return written, err
		}
		stream = stream[endAt:]
	}
	return written, bw.Flush()
}

func newDatasetCmd() *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Tokenize a directory of .txt files into a binary token file",
		Args:  cobra.NoArgs,
		RunE:  datasetHandler,
	}
	flags := datasetCmd.Flags()
	flags.StringP("input", "i", "", "directory searched for .txt files")
	flags.StringP("output", "o", "tokenized.chunk", "output file")
	flags.Int("context", 0, "context size, 0 to write one continuous stream")
	flags.String("bos", "", "BOS token prepended to each text")
	flags.String("eos", "</s>", "EOS token appended to each text")
	flags.String("pad", "", "padding token, defaults to the EOS token")
	flags.Int("workers", runtime.NumCPU(), "concurrent encoders")
	flags.Bool("uint32", false, "write 32-bit tokens")
	flags.String("reorder", "", "file order: size_ascending, "+
		"size_descending, path_ascending, path_descending, shuffle")
	return datasetCmd
}

func datasetHandler(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	inputDir, _ := flags.GetString("input")
	if inputDir == "" {
		return errors.New("must provide --input for directory source")
	}
	outputFile, _ := flags.GetString("output")
	contextSize, _ := flags.GetInt("context")
	bos, _ := flags.GetString("bos")
	eos, _ := flags.GetString("eos")
	pad, _ := flags.GetString("pad")
	workers, _ := flags.GetInt("workers")
	useUint32, _ := flags.GetBool("uint32")
	reorder, _ := flags.GetString("reorder")

	tokenizer, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}
	if pad == "" {
		pad = eos
	}
	padToken := llama_bpe.FallbackToken
	if pad != "" {
		if token := tokenizer.Get(pad); token != nil {
			padToken = *token
		} else {
			log.Printf("Padding token `%s` not in vocabulary, using %d",
				pad, padToken)
		}
	}

	log.Printf("Tokenizer input source: %s", inputDir)
	log.Printf("Tokenizer output: %s", outputFile)
	pathInfos, err := GlobTexts(inputDir)
	if err != nil {
		return err
	}
	if err := SortPathInfos(pathInfos, reorder); err != nil {
		return err
	}

	begin := time.Now()
	texts, err := TokenizeTexts(cmd.Context(), tokenizer, pathInfos, workers,
		llama_bpe.EncodeOptions{Bos: bos, Eos: eos})
	if err != nil {
		return err
	}
	outFile, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	total, err := WriteContexts(outFile, tokenizer, texts, contextSize,
		padToken, useUint32)
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	duration := time.Since(begin).Seconds()
	log.Printf("%d tokens in %0.2fs, %0.2f tokens/s", total, duration,
		float64(total)/duration)
	return nil
}
