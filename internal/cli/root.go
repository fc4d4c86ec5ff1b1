package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/completion"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document QA - Upload documents and ask questions with cited answers",
	Long: `docqa ingests documents into a vector store (chunking and embedding them)
and answers questions about them, citing the exact chunks the answer
came from.

Example usage:
  docqa upload report.txt                      # Ingest a document
  docqa ask -n report-a1b2c3d4 -q "question"   # Ask about it
  docqa namespaces                             # List uploaded documents`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// Best effort; a missing .env file is fine.
		_ = godotenv.Load()

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

		setupLogging(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// newVectorStore builds the configured store backend. The returned close
// function is a no-op for backends without local state.
func newVectorStore() (port.VectorStore, func() error, error) {
	switch cfg.Store.Backend {
	case "bolt", "":
		if err := config.EnsureDataDir(rootDir); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewBoltStore(cfg.StoreDBPath(rootDir), slog.Default())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return st, st.Close, nil
	case "qdrant":
		st := store.NewQdrantStore(store.QdrantConfig{
			URL:              cfg.Store.Qdrant.URL,
			APIKey:           os.Getenv(cfg.Store.Qdrant.APIKeyEnv),
			CollectionPrefix: cfg.Store.Qdrant.CollectionPrefix,
			Timeout:          time.Duration(cfg.Store.Qdrant.TimeoutSeconds) * time.Second,
		})
		return st, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai", "":
		return embedding.NewClient(embedding.Config{
			APIKeyEnv:   cfg.Embedding.APIKeyEnv,
			Model:       cfg.Embedding.Model,
			BaseURL:     cfg.Embedding.BaseURL,
			Dimension:   cfg.Embedding.Dimension,
			BatchSize:   cfg.Embedding.BatchSize,
			MaxAttempts: cfg.Embedding.MaxAttempts,
		})
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newCachedEmbedder() (port.Embedder, *cache.EmbeddingCache, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, nil, err
	}
	c := cache.NewEmbeddingCache(cfg.Ask.CacheSize, time.Duration(cfg.Ask.CacheTTLSeconds)*time.Second)
	return cache.NewCachedEmbedder(embedder, c), c, nil
}

func newCompleter() (port.Completer, error) {
	switch cfg.Completion.Provider {
	case "openai", "":
		return completion.NewClient(completion.Config{
			APIKeyEnv: cfg.Completion.APIKeyEnv,
			Model:     cfg.Completion.Model,
			BaseURL:   cfg.Completion.BaseURL,
		})
	case "mock":
		return completion.NewMockCompleter("mock answer"), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Completion.Provider)
	}
}
