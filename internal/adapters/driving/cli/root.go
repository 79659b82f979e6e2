package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	embeddingopenai "github.com/complyline/kbengine/internal/adapters/driven/embedding/openai"
	llmopenai "github.com/complyline/kbengine/internal/adapters/driven/llm/openai"
	"github.com/complyline/kbengine/internal/adapters/driven/source/rest"
	"github.com/complyline/kbengine/internal/adapters/driven/storage/sqlite"
	"github.com/complyline/kbengine/internal/config"
	"github.com/complyline/kbengine/internal/core/ports/driven"
	"github.com/complyline/kbengine/internal/core/ports/driving"
	"github.com/complyline/kbengine/internal/core/services"
	"github.com/complyline/kbengine/internal/logger"
)

// Shared state wired by initServices before any command runs.
var (
	cfg   *config.Config
	store *sqlite.Store

	syncService      driving.SyncService
	retrievalService driving.RetrievalService
	answerService    driving.AnswerService

	verbose    bool
	configPath string
	orgFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "kbengine",
	Short: "Compliance knowledge base indexing and retrieval engine",
	Long: `kbengine indexes an organisation's compliance records (policy documents
and historical tickets) into a local vector store and serves semantic
search and grounded question answering over them.`,
	PersistentPreRunE: initServices,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.kbengine/config.toml)")
	rootCmd.PersistentFlags().StringVar(&orgFlag, "org", "", "organisation to act on (default from config)")
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if store != nil {
			store.Close()
		}
	}()
	return rootCmd.Execute()
}

// initServices loads configuration and wires adapters into the core
// services. Providers missing credentials are left nil; the services
// surface that as unavailable-feature errors instead of failing startup.
func initServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if orgFlag != "" {
		cfg.Org = orgFlag
	}

	store, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	var embedder driven.EmbeddingService
	var llm driven.LLMService
	if cfg.OpenAI.APIKey != "" {
		embedder, err = embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.EmbeddingModel,
		})
		if err != nil {
			return fmt.Errorf("configuring embeddings: %w", err)
		}

		llm, err = llmopenai.NewLLMService(llmopenai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
		})
		if err != nil {
			return fmt.Errorf("configuring chat model: %w", err)
		}
	} else {
		logger.Debug("OPENAI_API_KEY not set: indexing, search and ask are disabled")
	}

	var source driven.RecordSource
	if cfg.Source.BaseURL != "" {
		source, err = rest.NewClient(rest.Config{
			BaseURL:           cfg.Source.BaseURL,
			APIToken:          cfg.Source.Token,
			RequestsPerSecond: cfg.Source.RequestsPerSecond,
		})
		if err != nil {
			return fmt.Errorf("configuring source client: %w", err)
		}
	} else {
		logger.Debug("source API not configured: sync is disabled")
	}

	syncService = services.NewSyncManager(
		source, embedder, store.VectorStore(), store.SyncJobStore(),
		syncOptions(cfg.Sync)...,
	)
	retrievalService = services.NewRetriever(embedder, store.VectorStore())
	answerService = services.NewAnswerer(retrievalService, llm)

	return nil
}

// syncOptions translates config values into service options, leaving
// defaults in place for zero values.
func syncOptions(c config.SyncConfig) []services.SyncOption {
	var opts []services.SyncOption
	if c.CooldownSeconds > 0 {
		opts = append(opts, services.WithCooldown(time.Duration(c.CooldownSeconds)*time.Second))
	}
	if c.PageSize > 0 {
		opts = append(opts, services.WithPageSize(c.PageSize))
	}
	if c.PagePauseSeconds > 0 {
		opts = append(opts, services.WithPagePause(time.Duration(c.PagePauseSeconds)*time.Second))
	}
	return opts
}
