// Package google manages OAuth2 credentials for the Google Calendar API.
//
// It provides the Credential record persisted between runs, the TokenStore
// abstraction with file-backed and in-memory implementations, and helpers
// for building the OAuth2 configuration and running the interactive consent
// flow. The token store is injected into the calendar client so that tests
// can substitute an in-memory store.
package google
