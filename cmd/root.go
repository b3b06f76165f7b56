package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/profile-search/internal/server"
)

const (
	app = "profile-search"
)

type Config struct {
	DataDir      string         `mapstructure:"data-dir"`
	ProfilesFile string         `mapstructure:"profiles-file"`
	Storage      *StorageConfig `mapstructure:"storage"`
	AI           *AIConfig      `mapstructure:"ai"`
	Server       server.Config  `mapstructure:"server"`
}

type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CacheDir        string `mapstructure:"cache-dir"`
	CredentialsFile string `mapstructure:"credentials-file"`
}

type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	Concurrency int           `mapstructure:"concurrency"`
	Gemini      *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	Backend         string `mapstructure:"backend"`
	APIKey          string `mapstructure:"api-key"`
	APIKeyFile      string `mapstructure:"api-key-file"`
	Project         string `mapstructure:"project"`
	Location        string `mapstructure:"location"`
	Model           string `mapstructure:"model"`
	MaxRetries      int    `mapstructure:"max-retries"`
	MaxLogLength    int    `mapstructure:"max-log-length"`
	MaxOutputTokens int32  `mapstructure:"max-output-tokens"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "profile-search consolidates candidate profiles and searches them with free-text recruiter queries",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.gemini.project":      "GOOGLE_CLOUD_PROJECT",
		"storage.bucket":         "PROFILE_SEARCH_BUCKET",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("data-dir", "data")
	viper.SetDefault("storage.prefix", "data/")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.concurrency", 4)
	viper.SetDefault("ai.gemini.backend", "gemini")
	viper.SetDefault("ai.gemini.location", "us-central1")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.max-output-tokens", 2048)
	viper.SetDefault("server.addr", ":8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is profile-search.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory with cv_<n>.txt, interview_<n>.txt and linkedin_profiles.json")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	// A local .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit --config the file is optional.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
