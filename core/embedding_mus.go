package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// EmbeddingMUS serializes Embedding values in the MUS format.
// Floats are written with fixed width so large matrices encode in a single pass.
var EmbeddingMUS = embeddingMUS{}

type embeddingMUS struct{}

func (s embeddingMUS) Marshal(v Embedding, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(v.Rows, bs[n:])
	n += varint.Int.Marshal(v.Dim, bs[n:])
	n += varint.Int.Marshal(len(v.Values), bs[n:])
	for _, f := range v.Values {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int.Marshal(v.Length, bs[n:])
	n += ord.Bool.Marshal(v.PerProtein, bs[n:])
	n += raw.Uint64.Marshal(v.Digest, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return
}

func (s embeddingMUS) Unmarshal(bs []byte) (v Embedding, n int, err error) {
	var n1 int
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Rows, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Dim, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	// Guard the allocation against corrupt lengths
	if count < 0 || count > (len(bs)-n)/4 {
		err = fmt.Errorf("%w: %d values in %d bytes", ErrShapeMismatch, count, len(bs)-n)
		return
	}
	v.Values = make([]float32, count)
	for i := range v.Values {
		v.Values[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.Length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PerProtein, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Digest, n1, err = raw.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (s embeddingMUS) Size(v Embedding) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(v.Rows)
	size += varint.Int.Size(v.Dim)
	size += varint.Int.Size(len(v.Values))
	for _, f := range v.Values {
		size += raw.Float32.Size(f)
	}
	size += varint.Int.Size(v.Length)
	size += ord.Bool.Size(v.PerProtein)
	size += raw.Uint64.Size(v.Digest)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return
}
