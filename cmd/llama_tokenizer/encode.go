package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohdsm81/llama_bpe"
	"github.com/mohdsm81/llama_bpe/types"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode [TEXT]",
		Short: "Encode text, or stdin when no text is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  encodeHandler,
	}
	encodeCmd.Flags().String("bos", "", "BOS token to prepend if registered")
	encodeCmd.Flags().String("eos", "", "EOS token to append if registered")
	encodeCmd.Flags().Bool("no-bos", false, "never prepend a BOS token")
	encodeCmd.Flags().Bool("no-eos", false, "never append an EOS token")
	encodeCmd.Flags().StringP("output", "o", "",
		"write little endian binary tokens to this file")
	encodeCmd.Flags().Bool("uint32", false, "write 32-bit tokens")
	return encodeCmd
}

func encodeHandler(cmd *cobra.Command, args []string) error {
	tokenizer, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		input, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = string(input)
	}
	bos, _ := cmd.Flags().GetString("bos")
	eos, _ := cmd.Flags().GetString("eos")
	noBos, _ := cmd.Flags().GetBool("no-bos")
	noEos, _ := cmd.Flags().GetBool("no-eos")
	tokens := tokenizer.Encode(text, llama_bpe.EncodeOptions{
		Bos: bos, Eos: eos, NoBos: noBos, NoEos: noEos,
	})

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), formatTokens(tokens))
		return nil
	}
	useUint32, _ := cmd.Flags().GetBool("uint32")
	bin, err := tokens.ToBin(useUint32)
	if err != nil {
		return err
	}
	return os.WriteFile(output, *bin, 0644)
}

func formatTokens(tokens types.Tokens) string {
	ids := make([]string, len(tokens))
	for idx, token := range tokens {
		ids[idx] = strconv.FormatInt(int64(token), 10)
	}
	return strings.Join(ids, " ")
}
