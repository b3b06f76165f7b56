package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/spigell/profile-search/internal/ai"
	"github.com/spigell/profile-search/internal/ai/gemini"
	"github.com/spigell/profile-search/internal/criteria"
	"github.com/spigell/profile-search/internal/filtering"
	"github.com/spigell/profile-search/internal/logger"
	"github.com/spigell/profile-search/internal/objstore"
	"github.com/spigell/profile-search/internal/profile"
	"github.com/spigell/profile-search/internal/search"
	"github.com/spigell/profile-search/internal/secrets"
)

// setup builds the logger and reads the config. Errors are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(config *Config) Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil {
		aiCfg := *config.AI
		gem := *config.AI.Gemini
		if gem.APIKey != "" {
			gem.APIKey = "***"
		}
		aiCfg.Gemini = &gem
		out.AI = &aiCfg
	}
	return out
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gemCfg := gemini.Config{
		Backend:         cfg.Gemini.Backend,
		Project:         cfg.Gemini.Project,
		Location:        cfg.Gemini.Location,
		Model:           cfg.Gemini.Model,
		MaxRetries:      cfg.Gemini.MaxRetries,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}

	if !strings.EqualFold(strings.TrimSpace(cfg.Gemini.Backend), gemini.BackendVertex) {
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  cfg.Gemini.APIKeyFile,
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", err)
		}
		gemCfg.APIKey = apiKey
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, gemCfg, genLogger)
}

func newStore(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (*objstore.Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	return objstore.New(ctx, cfg.Bucket, logger, opts...)
}

// newService wires the search pipeline from config. The returned cleanup
// closes the storage client when one was opened.
func newService(ctx context.Context, config *Config, logger *zap.Logger) (*search.Service, func(), error) {
	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building ai generator: %w", err)
	}

	maxLogLength := config.AI.Gemini.MaxLogLength

	deps := search.Deps{
		Interpreter: criteria.NewInterpreter(generator, logger, maxLogLength),
		Builder:     profile.NewConsolidator(generator, logger, config.AI.Concurrency, maxLogLength),
		Filter:      filtering.New(logger),
		Logger:      logger,
	}

	searchCfg := search.Config{
		DataDir:      config.DataDir,
		ProfilesFile: config.ProfilesFile,
	}

	cleanup := func() {}
	if config.Storage != nil && config.Storage.Enabled {
		store, err := newStore(ctx, config.Storage, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening object storage: %w", err)
		}
		deps.Store = store
		searchCfg.Prefix = config.Storage.Prefix
		searchCfg.CacheDir = config.Storage.CacheDir
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing object storage", zap.Error(err))
			}
		}
	}

	svc, err := search.New(searchCfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
