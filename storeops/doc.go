// Package storeops provides maintenance operations over result stores:
// merging partial stores, comparing two stores, describing a store and
// extracting a subset of ids into a new store.
//
// All operations read through storage.ResultStore and write only with Append,
// so a destination store keeps the same write-once guarantees as a run.
package storeops
