package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aluizdacosta/calendar-export/internal/logging"
)

// rootCmd represents the base command for the calendar-export application
var rootCmd = &cobra.Command{
	Use:   "calendar-export",
	Short: "Exports Google Calendar events to a JSON document",
	Long: `calendar-export fetches events from a Google Calendar over a configurable
date window, normalizes them into a stable JSON schema and writes the result
to a file.

Authentication uses OAuth2 with a locally persisted token; run the auth
command once to grant access.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.New(os.Stderr, logLevel))
	},
}

var (
	// version will be set by main
	version = "dev"

	logLevel string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calendar-export version %s\n" .Version}}`)

	// Local overrides for client id/secret and instrumentation settings
	_ = godotenv.Load()

	// If no subcommand is provided, run the export command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "export")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newAuthCmd())
}
