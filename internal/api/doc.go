// Package api serves the events dataset over a read-only HTTP API.
//
// Every request reads the dataset file again, so the API always reflects the last
// completed sync without any cache to invalidate.
package api
