// Package commands implements the callbridge command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/callbridge/cmd/callbridge/internal/config"
	"github.com/haivivi/callbridge/pkg/cli"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	formatOutput string
	outputFile   string
)

var rootCmd = &cobra.Command{
	Use:   "callbridge",
	Short: "Bridge phone calls to a realtime speech model",
	Long: `callbridge - relay telephony media streams to a realtime speech model.

The telephony provider opens a media-stream WebSocket per call. callbridge
looks up the agent profile named in the stream URL, dials the model and
transcodes audio in both directions until either side hangs up.

Configuration is read from ~/.callbridge/config.yaml (or --config).

Examples:
  # Store an agent profile and start serving
  callbridge profile put -f agent.yaml
  callbridge serve --listen :8080 --public-url wss://bridge.example.com

  # Inspect calls
  callbridge sessions --server http://localhost:8080
  callbridge calls list -o table`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.callbridge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&formatOutput, "output", "o", "", "output format: yaml, json or table")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "", "write output to a file instead of stdout")
}

// GetConfig loads the configuration named by --config.
func GetConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	return cfg, nil
}

// printResult writes v in the --output format, or def when unset.
func printResult(cmd *cobra.Command, v any, def cli.OutputFormat) error {
	format := def
	if formatOutput != "" {
		f, err := cli.ParseOutputFormat(formatOutput)
		if err != nil {
			return err
		}
		format = f
	}
	opts := cli.OutputOptions{Format: format, File: outputFile}
	if outputFile == "" {
		opts.Writer = cmd.OutOrStdout()
	}
	return cli.Output(v, opts)
}

// cliLogger returns a logger for commands other than serve: quiet unless
// --verbose.
func cliLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
