// Command wgs-somatic builds the whole-genome somatic pipeline and
// writes it out as CWL and WDL documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/flowc/internal/export"
	"github.com/me/flowc/internal/logging"
	"github.com/me/flowc/pkg/emit"
	"github.com/me/flowc/pkg/emit/cwl"
	"github.com/me/flowc/pkg/emit/wdl"
)

func main() {
	var (
		flagOutputDir string
		flagFormats   []string
		flagLogLevel  string
		flagLogFormat string
	)

	cmd := &cobra.Command{
		Use:          "wgs-somatic",
		Short:        "Compile the whole-genome somatic pipeline to CWL and WDL",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(flagLogLevel, flagLogFormat)

			flow, err := buildPipeline()
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			logger.Info("built workflow",
				"name", flow.Name(), "steps", len(flow.Steps()))

			writer := export.NewWriter(flagOutputDir, logger)
			for _, name := range flagFormats {
				format, err := emit.ParseFormat(name)
				if err != nil {
					return err
				}
				var emitter emit.Emitter
				switch format {
				case emit.FormatCWL:
					emitter = cwl.New(logger)
				case emit.FormatWDL:
					emitter = wdl.New(logger)
				}

				docs, err := emitter.Emit(flow)
				if err != nil {
					return fmt.Errorf("emit %s: %w", format, err)
				}
				paths, err := writer.Write(format, docs)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "translated", "Directory to write documents into")
	cmd.Flags().StringSliceVar(&flagFormats, "format", []string{"cwl", "wdl"}, "Output formats (cwl, wdl)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
