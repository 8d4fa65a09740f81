package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aluizdacosta/calendar-export/internal/calendar"
)

func newCalendarsCmd() *cobra.Command {
	var auth authFlags

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List calendars accessible to the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store, err := auth.tokenStore(slog.Default())
			if err != nil {
				return err
			}
			client, err := calendar.NewClient(ctx, store, calendar.WithLogger(slog.Default()))
			if err != nil {
				return fmt.Errorf("failed to create calendar client: %w", err)
			}

			calendars, err := client.ListCalendars(ctx)
			if err != nil {
				return err
			}

			for _, c := range calendars {
				marker := " "
				if c.Primary {
					marker = "*"
				}
				fmt.Printf("%s %-40s %-12s %s\n", marker, c.ID, c.AccessRole, c.Summary)
			}
			fmt.Printf("%d calendars (* = primary)\n", len(calendars))
			return nil
		},
	}

	auth.register(cmd)
	return cmd
}
