// Package server provides the optional Prometheus scrape endpoint used
// during long-running exports.
package server
