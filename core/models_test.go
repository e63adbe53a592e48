package core

import (
	"testing"
	"time"
)

func TestDigestResidues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		wantSame bool
	}{
		{name: "same residues produce same digest", a: "MKTAYIAK", b: "MKTAYIAK", wantSame: true},
		{name: "empty string", a: "", b: "", wantSame: true},
		{name: "single substitution changes digest", a: "MKTAYIAK", b: "MKTAYIAR", wantSame: false},
		{name: "order matters", a: "MK", b: "KM", wantSame: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same := DigestResidues(tt.a) == DigestResidues(tt.b)
			if same != tt.wantSame {
				t.Errorf("DigestResidues(%q) == DigestResidues(%q) is %v, want %v", tt.a, tt.b, same, tt.wantSame)
			}
		})
	}
}

func TestNewSequenceRecord(t *testing.T) {
	r := NewSequenceRecord("P1", "MKV", 4)
	if r.Length != 3 {
		t.Errorf("Length = %d, want 3", r.Length)
	}
	if r.Index != 4 {
		t.Errorf("Index = %d, want 4", r.Index)
	}
}

func TestEmbeddingRows(t *testing.T) {
	e := &Embedding{ID: "P1", Rows: 2, Dim: 3, Values: []float32{1, 2, 3, 4, 5, 6}}

	if got := e.Row(1); got[0] != 4 || got[2] != 6 {
		t.Errorf("Row(1) = %v, want [4 5 6]", got)
	}
	if got := e.Vector(); len(got) != 3 || got[0] != 1 {
		t.Errorf("Vector() = %v, want [1 2 3]", got)
	}

	empty := &Embedding{ID: "P2"}
	if got := empty.Vector(); got != nil {
		t.Errorf("Vector() on empty embedding = %v, want nil", got)
	}
}

func TestEmbeddingMUS(t *testing.T) {
	created := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	in := Embedding{
		ID:         "sp_P69905_HBA_HUMAN",
		Rows:       2,
		Dim:        3,
		Values:     []float32{0.5, -1.25, 3, 0, 1e-6, -7},
		Length:     2,
		PerProtein: false,
		Digest:     DigestResidues("MV"),
		CreatedAt:  created,
	}

	buf := make([]byte, EmbeddingMUS.Size(in))
	n := EmbeddingMUS.Marshal(in, buf)
	if n != len(buf) {
		t.Fatalf("Marshal wrote %d bytes, Size reported %d", n, len(buf))
	}

	out, m, err := EmbeddingMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m != n {
		t.Errorf("Unmarshal read %d bytes, want %d", m, n)
	}
	if out.ID != in.ID || out.Rows != in.Rows || out.Dim != in.Dim || out.Length != in.Length {
		t.Errorf("Unmarshal() header = %+v, want %+v", out, in)
	}
	if out.Digest != in.Digest || out.PerProtein != in.PerProtein || !out.CreatedAt.Equal(created) {
		t.Errorf("Unmarshal() metadata = %+v, want %+v", out, in)
	}
	for i := range in.Values {
		if out.Values[i] != in.Values[i] {
			t.Errorf("Values[%d] = %v, want %v", i, out.Values[i], in.Values[i])
		}
	}
}

func TestEmbeddingMUSTruncated(t *testing.T) {
	in := Embedding{ID: "P1", Rows: 1, Dim: 4, Values: []float32{1, 2, 3, 4}, PerProtein: true}
	buf := make([]byte, EmbeddingMUS.Size(in))
	EmbeddingMUS.Marshal(in, buf)

	if _, _, err := EmbeddingMUS.Unmarshal(buf[:len(buf)/2]); err == nil {
		t.Error("Unmarshal() of truncated data should fail")
	}
}
