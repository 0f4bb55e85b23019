// Package storage reads and writes the events dataset.
//
// The dataset is either a TypeScript module holding an exported Event[] literal
// (the format the website imports) or a JSON document. A Codec decodes records out of
// a file and re-encodes them into it; the TypeScript codec only replaces the array
// literal and leaves the rest of the module untouched.
//
// Writing goes through a Writer. FileWriter keeps a backup of the previous file and
// replaces the dataset atomically; DryRunWriter prints a preview instead.
package storage
