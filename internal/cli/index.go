package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the retrieval index from configured law sources",
	Long: `Load every configured law, detect sections, chunk, embed, and
persist the index artifact. Rebuilding is wholesale: the artifact is
replaced, never patched.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	start := time.Now()

	progress := func(processed, total int, lawID string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Indexing"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Add(1)
	}

	result, err := builder.Build(cmd.Context(), progress)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	artifact, err := openArtifact(cfg)
	if err != nil {
		return err
	}
	defer artifact.Close()

	if err := builder.Persist(artifact, result.Version); err != nil {
		return fmt.Errorf("failed to persist index artifact: %w", err)
	}

	fmt.Printf("Indexed %d documents into %d chunks in %s\n",
		result.Docs, result.Chunks, time.Since(start).Round(time.Millisecond))

	for _, w := range result.Warnings {
		fmt.Printf("warning [%s]: %s\n", w.LawID, w.Message)
	}

	return nil
}
