package badger

import "strings"

// Key prefixes for different data types
const (
	embeddingPrefix = "emb:"
)

// makeEmbeddingKey generates a key for an embedding by sequence id.
// Format: prefix + id
func makeEmbeddingKey(id string) []byte {
	buf := make([]byte, 0, len(embeddingPrefix)+len(id))
	buf = append(buf, embeddingPrefix...)
	return append(buf, id...)
}

// idFromEmbeddingKey recovers the sequence id from an embedding key.
func idFromEmbeddingKey(key []byte) string {
	return strings.TrimPrefix(string(key), embeddingPrefix)
}
