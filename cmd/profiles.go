package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/profile-search/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Build consolidated candidate profiles and print or store them",
	Run: func(cmd *cobra.Command, _ []string) {
		runProfiles(cmd)
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().StringP("output", "o", "", "write profiles to this file instead of stdout")
}

func runProfiles(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	// Always rebuild here; a stored profiles file is what this command produces.
	config.ProfilesFile = ""

	svc, cleanup, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the profile builder", zap.Error(err))
	}
	defer cleanup()

	profiles, err := svc.Profiles(ctx)
	if err != nil {
		logger.Fatal("building profiles", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		if err := printJSON(profiles); err != nil {
			logger.Fatal("printing profiles", zap.Error(err))
		}
		return
	}

	if err := profile.WriteFile(output, profiles); err != nil {
		logger.Fatal("writing profiles", zap.Error(err), zap.String("filename", output))
	}
	logger.Info("profiles stored", zap.String("filename", output), zap.Int("count", len(profiles)))
}
