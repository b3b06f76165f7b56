package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultQuery = "Find candidates with Python and TensorFlow skills OR a BSc degree in Software Engineering"

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search candidate profiles with a free-text query",
	Run: func(cmd *cobra.Command, _ []string) {
		runSearch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "", "recruiter query. Asked interactively when unset.")
	searchCmd.Flags().StringP("profiles-file", "p", "", "use profiles stored by the profiles command instead of building them")

	viper.BindPFlag("profiles-file", searchCmd.Flags().Lookup("profiles-file"))
}

func runSearch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	query, _ := cmd.Flags().GetString("query")
	if strings.TrimSpace(query) == "" {
		var err error
		query, err = askQuery()
		if err != nil {
			logger.Fatal("reading query", zap.Error(err))
		}
	}

	logger.Info("starting the search", zap.String("version", version), zap.String("query", query))

	svc, cleanup, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the search", zap.Error(err))
	}
	defer cleanup()

	result, err := svc.Process(ctx, query)
	if err != nil {
		logger.Fatal("search failed", zap.Error(err))
	}

	if result.Error != "" {
		logger.Warn(result.Error, zap.String("details", result.Details))
	} else {
		logger.Info("search finished", zap.Int("count", len(result.Profiles)))
	}

	if err := printJSON(result); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}
}

func askQuery() (string, error) {
	prompt := promptui.Prompt{
		Label:     "Query",
		Default:   defaultQuery,
		AllowEdit: true,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errEmptyInput
			}
			return nil
		},
	}

	return prompt.Run()
}
