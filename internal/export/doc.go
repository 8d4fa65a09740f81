// Package export orchestrates a calendar export run: fetch raw events
// through the calendar client, normalize them into the canonical record,
// apply the response filter and assemble the output document.
package export
