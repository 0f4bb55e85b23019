// Package pipeline runs one sync pass: discover event URLs on the listing page,
// fetch each event, load the stored dataset, reconcile the two and write the result.
//
// Per-event failures are skipped and logged. A listing with no events ends the run
// early without touching the dataset. A dataset that cannot be loaded is logged at
// ERROR and treated as empty; a failed write is the only fatal outcome.
package pipeline
