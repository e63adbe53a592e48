// Package corpus loads FASTA-formatted sequence collections.
//
// Records are normalized as they are read: whitespace is removed, residues are
// uppercased, gap characters are dropped, and the ambiguous codes U, Z and O are
// replaced by X. Header lines become storage-safe ids by replacing path-unsafe
// characters with an underscore.
//
// A loaded Corpus is sorted by descending sequence length, ties broken by the
// order in which ids were first encountered. Sorting groups sequences of similar
// cost together, which is what the batch planner relies on.
//
// # Duplicate ids
//
// By default a later record with an id already seen replaces the earlier body
// while keeping the earlier position. The replaced ids are reported in
// Corpus.Duplicates so callers can surface them. Use WithDuplicatePolicy to
// reject duplicates instead.
package corpus
