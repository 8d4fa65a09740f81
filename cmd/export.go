package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/aluizdacosta/calendar-export/internal/calendar"
	"github.com/aluizdacosta/calendar-export/internal/export"
	"github.com/aluizdacosta/calendar-export/internal/google"
	"github.com/aluizdacosta/calendar-export/internal/instrumentation"
	"github.com/aluizdacosta/calendar-export/internal/server"
)

// authFlags are the credential inputs shared by every command that talks to
// the API. An explicit client id/secret pair overrides the credentials file.
type authFlags struct {
	clientID        string
	clientSecret    string
	credentialsFile string
	tokenFile       string
}

func (f *authFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.clientID, "client-id", os.Getenv("GOOGLE_CLIENT_ID"), "OAuth client id (overrides credentials file)")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", os.Getenv("GOOGLE_CLIENT_SECRET"), "OAuth client secret (overrides credentials file)")
	cmd.Flags().StringVar(&f.credentialsFile, "credentials", "credentials.json", "Path to the OAuth credentials file")
	cmd.Flags().StringVar(&f.tokenFile, "token-file", "token.json", "Path to the persisted token file")
}

func (f *authFlags) oauthConfig() (*oauth2.Config, error) {
	return google.NewOAuthConfig(f.clientID, f.clientSecret, f.credentialsFile)
}

func (f *authFlags) tokenStore(logger *slog.Logger) (*google.FileTokenStore, error) {
	conf, err := f.oauthConfig()
	if err != nil {
		return nil, err
	}
	return google.NewFileTokenStore(f.tokenFile, conf, logger), nil
}

func newExportCmd() *cobra.Command {
	var (
		auth          authFlags
		calendarID    string
		output        string
		daysBack      int
		daysForward   int
		maxResults    int64
		acceptedOnly  bool
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export calendar events for a date window to a JSON file",
		Long: `Fetch events from a calendar between now-days-back and now+days-forward,
normalize them into the stable export schema and write the document to a
JSON file. With --accepted-only, only events you organize or have accepted
(or tentatively accepted) are included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := slog.Default()

			instrConfig := instrumentation.DefaultConfig()
			instrConfig.ServiceVersion = version
			if err := instrConfig.Validate(); err != nil {
				return fmt.Errorf("invalid instrumentation config: %w", err)
			}
			provider, err := instrumentation.NewProvider(ctx, instrConfig)
			if err != nil {
				return fmt.Errorf("failed to initialize instrumentation: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = provider.Shutdown(shutdownCtx)
			}()

			if metricsListen != "" {
				metricsSrv, err := server.NewMetricsServer(metricsListen, provider)
				if err != nil {
					return fmt.Errorf("failed to create metrics server: %w", err)
				}
				go func() {
					if err := metricsSrv.Start(); err != nil {
						logger.Warn("metrics server stopped", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = metricsSrv.Shutdown(shutdownCtx)
				}()
			}

			store, err := auth.tokenStore(logger)
			if err != nil {
				return err
			}

			client, err := calendar.NewClient(ctx, store,
				calendar.WithLogger(logger),
				calendar.WithMetrics(provider.Metrics()))
			if err != nil {
				return fmt.Errorf("failed to create calendar client: %w", err)
			}

			pipeline := export.NewPipeline(client,
				export.WithLogger(logger),
				export.WithMetrics(provider.Metrics()))

			now := time.Now()
			out, err := pipeline.Run(ctx, export.Options{
				CalendarID: calendarID,
				TimeMin:    now.AddDate(0, 0, -daysBack),
				TimeMax:    now.AddDate(0, 0, daysForward),
				MaxResults: maxResults,
				Filter:     export.ModeFor(acceptedOnly),
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode export: %w", err)
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			s := export.Summarize(out)
			logger.Info("export written",
				slog.String("output", output),
				slog.Int("events", s.Total),
				slog.Int("all_day", s.AllDay),
				slog.Int("timed", s.Timed),
				slog.Int("with_attendees", s.WithAttendees))
			fmt.Printf("Exported %d events to %s\n", s.Total, output)
			return nil
		},
	}

	auth.register(cmd)
	cmd.Flags().StringVar(&calendarID, "calendar-id", "primary", "Calendar to export")
	cmd.Flags().StringVar(&output, "output", "calendar_export.json", "Output file path")
	cmd.Flags().IntVar(&daysBack, "days-back", 30, "Days before now to include")
	cmd.Flags().IntVar(&daysForward, "days-forward", 30, "Days after now to include")
	cmd.Flags().Int64Var(&maxResults, "max-results", 1000, "Maximum number of fetched events")
	cmd.Flags().BoolVar(&acceptedOnly, "accepted-only", false, "Export only events you organize or accepted")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address for a Prometheus scrape endpoint during the export (e.g. :9090)")
	return cmd
}
