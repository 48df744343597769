// Command iyakuhin-supply downloads the MHLW drug supply-status workbook and
// converts it to a compact JSON file. The serve subcommand keeps the file
// fresh on a daily schedule and publishes it over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/preview"
	"github.com/giygas/iyakuhin-supply/supplyparser"
	"github.com/spf13/cobra"
)

var (
	outputPath  string
	profilePath string
	previewRows int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iyakuhin-supply",
		Short: "Convert the MHLW supply-status workbook to JSON",
		Long: `iyakuhin-supply finds the current supply-status workbook on the MHLW page,
downloads it and writes its data rows as {"fetchDate","source","rows"} JSON.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: OUTPUT_FILE or data.json)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML source profile (default: SOURCE_PROFILE)")
	rootCmd.Flags().IntVar(&previewRows, "preview", 0, "Print the first N rows as a table after writing")

	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// setup loads the configuration, applies flag overrides and starts logging
func setup() (*config.Config, error) {
	config.LoadDotEnv()

	profile := profilePath
	if profile == "" {
		profile = os.Getenv("SOURCE_PROFILE")
	}
	cfg, err := config.LoadWithProfile(profile)
	if err != nil {
		return nil, err
	}

	if outputPath != "" {
		cfg.OutputFile = outputPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logging.InitLogger(logging.Options{
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logging.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := supplyparser.NewPipeline(cfg.Source, cfg.OutputFile).
		WithProgressWriter(cmd.OutOrStdout()).
		Run(ctx)
	if err != nil {
		logging.Error("Supply data update failed", "error", err)
		return err
	}

	if previewRows > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		return preview.WriteTable(cmd.OutOrStdout(), result.Envelope.Rows, cfg.Source.Columns, previewRows)
	}
	return nil
}
