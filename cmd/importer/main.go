package main

import (
	"context"
	"os"
	"time"

	"flickr-shapes/internal/config"
	"flickr-shapes/internal/repository"
	"flickr-shapes/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Convert the Flickr shapefiles public dataset to vector data",
	Long: `Reads the Flickr alpha shapes XML document from standard input and writes
one polygon per shape, grouped by creation date, to the configured output.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConvert,
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("conversion failed")
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Str("run_id", uuid.NewString()).Logger()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	open := func(ctx context.Context) (repository.Dataset, error) {
		return repository.Open(ctx, repository.Options{
			Driver:   cfg.OutputDriver,
			Path:     cfg.OutputPath,
			DBSource: cfg.DBSource,
		})
	}
	convertService := service.NewConvertService(open, service.ConvertOptions{
		DateLayout: cfg.GroupDateLayout,
		Location:   loc,
		Progress:   cmd.OutOrStdout(),
	})

	log.Info().Str("driver", cfg.OutputDriver).Str("output", cfg.OutputPath).Msg("starting conversion")
	start := time.Now()

	summary, err := convertService.Convert(cmd.Context(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	log.Info().
		Int("features", summary.Features).
		Int("skipped", summary.Skipped).
		Strs("groups", summary.Groups).
		Dur("elapsed", time.Since(start)).
		Msg("conversion finished")
	return nil
}
