package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohdsm81/llama_bpe"
)

// A REPL for interacting with the tokenizer.

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively show how lines are tokenized",
		Args:  cobra.NoArgs,
		RunE:  replHandler,
	}
}

func replHandler(cmd *cobra.Command, args []string) error {
	tokenizer, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}
	return repl(tokenizer, cmd.InOrStdin(), cmd.OutOrStdout())
}

func repl(tokenizer *llama_bpe.Tokenizer, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, ">>> ")
		input, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && input == "" {
			fmt.Fprintln(out)
			return nil
		} else if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		// Remove trailing newline and replace \n with newline.
		input = strings.TrimSuffix(input, "\n")
		input = strings.ReplaceAll(input, "\\n", "\n")

		tokens := tokenizer.Encode(input, llama_bpe.EncodeOptions{})
		fmt.Fprintln(out, formatTokens(tokens))
		for _, token := range tokens {
			entry, _ := tokenizer.Vocabulary().Entry(token)
			fmt.Fprintf(out, "|%s", entry.Bytes)
		}
		fmt.Fprintln(out)
	}
}
