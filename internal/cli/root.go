package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lawrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "lawrag",
	Short: "Regulatory retrieval with audit evidence - index and query legal corpora",
	Long: `lawrag indexes legal documents with section-aware chunking, serves
hybrid (lexical + semantic) retrieval over them, and writes a
tamper-evident audit record for every retrieval decision.

Example usage:
  lawrag index                          # Build the index from configured sources
  lawrag query -q "age verification"    # Search the corpus
  lawrag serve                          # Start the HTTP facade
  lawrag export-evidence --component retrieval_service`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lawrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}
