package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohdsm81/llama_bpe"
)

func main() {
	cobra.CheckErr(NewCLI().ExecuteContext(context.Background()))
}

// NewCLI builds the `llama_tokenizer` command tree.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "llama_tokenizer",
		Short: "Encode and decode text with llama2 style BPE vocabularies",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}
	rootCmd.PersistentFlags().String("tokenizer", "llama-toy",
		"vocabulary id: embedded id, local directory or URL")

	rootCmd.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newReplCmd(),
		newConvertCmd(),
		newDatasetCmd(),
	)
	return rootCmd
}

func loadTokenizer(cmd *cobra.Command) (*llama_bpe.Tokenizer, error) {
	vocabId, err := cmd.Flags().GetString("tokenizer")
	if err != nil {
		return nil, err
	}
	tokenizer, err := llama_bpe.NewTokenizerFromVocabId(vocabId)
	if err != nil {
		return nil, err
	}
	log.Printf("Tokenizer `%s`: %d tokens", vocabId,
		tokenizer.Vocabulary().Len())
	return tokenizer, nil
}
