package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lawrag/internal/usecase"
)

var (
	queryText     string
	queryLaws     []string
	queryTopK     int
	queryMaxChars int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the indexed corpus",
	Long: `Run one hybrid retrieval against the persisted index.

Examples:
  lawrag query -q "age verification for minors"
  lawrag query -q "parental consent" --laws coppa,gdpr --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().StringSliceVar(&queryLaws, "laws", nil, "restrict to these law ids")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().IntVar(&queryMaxChars, "max-chars", 0, "snippet length budget (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	artifact, err := openArtifact(cfg)
	if err != nil {
		return err
	}
	defer artifact.Close()

	if empty, err := artifact.Empty(); err != nil {
		return err
	} else if empty {
		return fmt.Errorf("no index found, run 'lawrag index' first")
	}

	version, err := builder.Restore(artifact)
	if err != nil {
		return err
	}

	svc, evLog, err := newService(cfg)
	if err != nil {
		return err
	}
	defer evLog.Close()

	svc.Install(version)

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	maxChars := cfg.Retrieve.MaxSnippetChars
	if queryMaxChars > 0 {
		maxChars = queryMaxChars
	}

	resp, err := svc.Retrieve(cmd.Context(), usecase.Request{
		Query:    queryText,
		Laws:     queryLaws,
		TopK:     topK,
		MaxChars: maxChars,
	})
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	if queryJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results in %.1fms (searched: %v)\n\n",
		len(resp.Results), resp.LatencyMS, resp.LawsSearched)
	for i, r := range resp.Results {
		fmt.Printf("--- [%d] %s %s L%d-%d (score %.3f, sparse %.3f, dense %.3f) ---\n",
			i+1, r.LawName, r.SectionLabel, r.StartLine, r.EndLine,
			r.Score, r.SparseScore, r.DenseScore)
		fmt.Println(r.Snippet)
		fmt.Println()
	}

	return nil
}
