package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mohdsm81/llama_bpe/types"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode [ID...]",
		Short: "Decode token ids given as arguments or as a binary file",
		RunE:  decodeHandler,
	}
	decodeCmd.Flags().StringP("input", "i", "",
		"little endian binary token file to decode")
	decodeCmd.Flags().Bool("uint32", false, "input holds 32-bit tokens")
	return decodeCmd
}

func parseTokens(args []string) (types.Tokens, error) {
	tokens := make(types.Tokens, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q: %w", arg, err)
		}
		tokens = append(tokens, types.Token(id))
	}
	return tokens, nil
}

func decodeHandler(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" && len(args) == 0 {
		return fmt.Errorf("provide token ids or --input")
	}
	tokenizer, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}
	var tokens types.Tokens
	if input != "" {
		bin, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		if useUint32, _ := cmd.Flags().GetBool("uint32"); useUint32 {
			tokens = *types.TokensFromBin32(&bin)
		} else {
			tokens = *types.TokensFromBin(&bin)
		}
	} else if tokens, err = parseTokens(args); err != nil {
		return err
	}
	decoded, err := tokenizer.Decode(tokens)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), decoded)
	return nil
}
