// Package cli implements the command-line interface for meetup-sync.
//
// The root command runs a sync: it scrapes the group's Meetup listing, reconciles the
// events with the stored dataset and writes the result, or prints a preview with
// --dry-run. The list command prints the dataset by category (text, JSON or iCalendar)
// and serve exposes it over a read-only HTTP API.
package cli
