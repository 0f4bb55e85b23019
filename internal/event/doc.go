// Package event provides the canonical event record for the Meetup sync pipeline.
//
// The event package handles record representation, date normalization, the
// upcoming/past categorization consumed by the site, and reconciliation of freshly
// scraped records against the persisted dataset. Records are joined on SourceID, the
// numeric identifier taken from the Meetup event URL; records without one are treated
// as hand-authored and are never matched or overwritten.
package event
