// Package calendar provides a read-only client for the Google Calendar API
// and the normalization of raw API events into the canonical export schema.
//
// The client handles pagination with a hard result cap, authorization
// retries through an injected token store, and bounded exponential backoff
// for quota and transient failures. Normalized Event values are immutable
// and carry every schema field explicitly, so downstream consumers always
// see a stable shape.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := calendar.NewClient(ctx, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	raws, err := client.ListEvents(ctx, "primary", timeMin, timeMax, 1000)
package calendar
