package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lawrag/internal/evidence"
	"lawrag/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP facade over the retrieval service",
	Long: `Restore the persisted index and serve retrieval, status, and
evidence-export endpoints. The process owns one evidence logger; every
retrieval decision is appended to the audit stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Embedding API keys typically live in a .env next to the corpus.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

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

	exporter := evidence.NewExporter(cfg.Evidence.Dir)
	server := httpapi.NewServer(svc, exporter)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	slog.Info("serving", "addr", addr, "chunks", version.Stats.TotalChunks)
	return server.Router().Run(addr)
}
