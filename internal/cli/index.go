package cli

import (
	"github.com/spf13/cobra"

	"compliance/internal/chunker"
	"compliance/internal/corpus"
	"compliance/internal/embedding"
	"compliance/internal/indexer"
	"compliance/internal/logger"
)

var (
	indexCorpusDir string
	indexOutDir    string
	indexMaxDocs   int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the contract corpus",
	Long: `Reads the first contracts of the corpus directory in name order, splits
them into overlapping chunks, embeds every chunk and saves the index.
Nothing is written if any step fails.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCorpusDir, "corpus", "", "directory of .txt/.pdf contracts (overrides corpus.dir)")
	indexCmd.Flags().StringVar(&indexOutDir, "out", "", "index directory (overrides index.path)")
	indexCmd.Flags().IntVar(&indexMaxDocs, "max-docs", 0, "maximum number of contracts, -1 for all (overrides corpus.max_documents)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	dir := firstNonEmpty(indexCorpusDir, cfg.Corpus.Dir)
	out := firstNonEmpty(indexOutDir, cfg.Index.Path)
	maxDocs := cfg.Corpus.MaxDocuments
	if indexMaxDocs != 0 {
		maxDocs = indexMaxDocs
	}

	cmd.Printf("Loading contracts from %s...\n", dir)
	docs, err := corpus.Load(dir, corpus.Options{MaxDocuments: maxDocs})
	if err != nil {
		return err
	}
	cmd.Printf("Total contracts loaded: %d\n", len(docs))

	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return err
	}
	batch := 0
	if cfg.Embedder.OpenAI != nil {
		batch = cfg.Embedder.OpenAI.BatchSize
	}
	ix := indexer.New(
		chunker.New(chunker.WithMaxChars(cfg.Chunker.MaxChars), chunker.WithOverlap(cfg.Chunker.OverlapChars)),
		emb,
		indexer.Options{
			BatchSize: batch,
			Progress: func(done, total int) {
				logger.Debug("Embedded %d/%d chunks", done, total)
			},
		},
	)
	stats, err := ix.Run(cmd.Context(), docs, out)
	if err != nil {
		return err
	}
	cmd.Printf("Total chunks created: %d\n", stats.Chunks)
	cmd.Printf("Vector store saved to '%s/' (%s)\n", out, stats.Identity)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
