package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/profile-search/internal/criteria"
)

var errEmptyInput = errors.New("query must not be empty")

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Interpret a query and print the structured criteria without filtering",
	Run: func(cmd *cobra.Command, _ []string) {
		runCriteria(cmd)
	},
}

func init() {
	rootCmd.AddCommand(criteriaCmd)

	criteriaCmd.Flags().StringP("query", "q", "", "recruiter query. Asked interactively when unset.")
	criteriaCmd.Flags().StringP("profiles-file", "p", "", "use profiles stored by the profiles command instead of building them")
}

func runCriteria(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	if file, _ := cmd.Flags().GetString("profiles-file"); file != "" {
		config.ProfilesFile = file
	}

	query, _ := cmd.Flags().GetString("query")
	if strings.TrimSpace(query) == "" {
		var err error
		query, err = askQuery()
		if err != nil {
			logger.Fatal("reading query", zap.Error(err))
		}
	}

	svc, cleanup, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the interpreter", zap.Error(err))
	}
	defer cleanup()

	c, err := svc.Criteria(ctx, query)
	if err != nil {
		var interpretErr *criteria.InterpretError
		if errors.As(err, &interpretErr) {
			logger.Fatal("failed to interpret query", zap.Error(err), zap.String("details", interpretErr.Raw))
		}
		logger.Fatal("interpreting query", zap.Error(err))
	}

	for _, status := range svc.Describe(c) {
		logger.Info("predicate",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.Any("details", status.Details),
		)
	}

	if err := printJSON(c); err != nil {
		logger.Fatal("printing criteria", zap.Error(err))
	}
}
