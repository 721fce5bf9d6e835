package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mohdsm81/llama_bpe/resources"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert MODEL",
		Short: "Convert a SentencePiece tokenizer.model into tokenizer.bin",
		Long: "Convert a SentencePiece tokenizer.model into tokenizer.bin " +
			"and tokenizer_config.json in the same directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			converted, err := resources.ConvertSentencePieceFile(args[0])
			if err != nil {
				return err
			}
			log.Printf("Converted %s: %d pieces, %d specials", args[0],
				len(converted.Pieces), len(converted.Specials))
			return nil
		},
	}
}
