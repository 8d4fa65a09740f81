// Package cmd implements the command-line interface for calendar-export.
//
// This package provides the following commands:
//   - export: Export calendar events for a date window to a JSON file
//   - calendars: List calendars accessible to the authenticated user
//   - auth: Run the interactive OAuth consent flow and persist the token
//
// The export command is the default command when no subcommand is specified.
package cmd
