package corpus

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/poiesic/seqembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(records []*core.SequenceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestParse_NormalizesAndSorts(t *testing.T) {
	input := `>short
mk
>long/one.v2
MKT AYI
AK-UZ
O
>mid
MKTA
`
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := []*core.SequenceRecord{
		{ID: "long_one_v2", Residues: "MKTAYIAKXXX", Length: 11, Index: 1},
		{ID: "mid", Residues: "MKTA", Length: 4, Index: 2},
		{ID: "short", Residues: "MK", Length: 2, Index: 0},
	}
	if diff := cmp.Diff(want, c.Records); diff != "" {
		t.Errorf("Parse() records mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, c.Duplicates)
}

func TestParse_StableTieBreak(t *testing.T) {
	input := ">c\nAAA\n>a\nCCC\n>b\nDDD\n>z\nMKVL\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "c", "a", "b"}, ids(c.Records))
}

func TestParse_WorkedExampleOrder(t *testing.T) {
	input := ">A\n" + strings.Repeat("M", 50) +
		"\n>B\n" + strings.Repeat("K", 3000) +
		"\n>C\n" + strings.Repeat("V", 5000) +
		"\n>D\n" + strings.Repeat("L", 10) + "\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "B", "A", "D"}, ids(c.Records))
}

func TestParse_DuplicateLastWins(t *testing.T) {
	input := ">dup\nAAAA\n>other\nMK\n>dup\nCC\nC\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, c.Records, 2)
	assert.Equal(t, []string{"dup"}, c.Duplicates)

	var dup *core.SequenceRecord
	for _, r := range c.Records {
		if r.ID == "dup" {
			dup = r
		}
	}
	require.NotNil(t, dup)
	assert.Equal(t, "CCC", dup.Residues, "later record should replace earlier body")
	assert.Equal(t, 3, dup.Length)
	assert.Equal(t, 0, dup.Index, "replaced record keeps its first position")
}

func TestParse_DuplicateReject(t *testing.T) {
	input := ">dup\nAAAA\n>dup\nCC\n"
	_, err := Parse(strings.NewReader(input), WithDuplicatePolicy(DuplicateReject))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
}

func TestParse_SanitizedIDsCollide(t *testing.T) {
	// "a.b" and "a/b" both become "a_b"
	input := ">a.b\nMK\n>a/b\nMKV\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, c.Records, 1)
	assert.Equal(t, "MKV", c.Records[0].Residues)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantLine int
	}{
		{
			name:     "body before header",
			input:    "MKV\n>a\nMK\n",
			wantErr:  ErrBodyBeforeHeader,
			wantLine: 1,
		},
		{
			name:     "empty id",
			input:    ">a\nMK\n>   \nMK\n",
			wantErr:  core.ErrEmptyID,
			wantLine: 3,
		},
		{
			name:     "empty sequence",
			input:    ">a\nMK\n>b\n>c\nMK\n",
			wantErr:  core.ErrEmptySequence,
			wantLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantLine, perr.Line)
		})
	}
}

func TestParse_UnknownSymbolsReplaced(t *testing.T) {
	input := ">a\nMKV*\n>b\nM1K\u00e9\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	got := map[string]string{}
	for _, r := range c.Records {
		got[r.ID] = r.Residues
		assert.Equal(t, len(r.Residues), r.Length)
		assert.NoError(t, core.ValidateSequenceRecord(r))
	}
	assert.Equal(t, map[string]string{"a": "MKVX", "b": "MXKX"}, got)
}

func TestParse_StrictResidues(t *testing.T) {
	_, err := Parse(strings.NewReader(">a\nMK\nM*K\n"), WithStrictResidues())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidResidue)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)

	c, err := Parse(strings.NewReader(">a\nMK\n"), WithStrictResidues())
	require.NoError(t, err)
	assert.Equal(t, "MK", c.Records[0].Residues)
}

func TestReplaceInvalidResidues(t *testing.T) {
	out, n := ReplaceInvalidResidues("MKV")
	assert.Equal(t, "MKV", out)
	assert.Zero(t, n)

	out, n = ReplaceInvalidResidues("*M.1")
	assert.Equal(t, "XMXX", out)
	assert.Equal(t, 3, n)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	c, err := Parse(strings.NewReader("\n  \n>a\n\nMK\n\n"))
	require.NoError(t, err)
	require.Len(t, c.Records, 1)
	assert.Equal(t, "MK", c.Records[0].Residues)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fasta")
	require.NoError(t, os.WriteFile(path, []byte(">x\nMKV\n"), 0644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(c.Records))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.fasta"))
	assert.Error(t, err)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "sp_P69905_HBA_HUMAN", SanitizeID("sp/P69905/HBA_HUMAN"))
	assert.Equal(t, "UniRef50_A0A1", SanitizeID("  UniRef50.A0A1 \t"))
	assert.Equal(t, "a_b_c", SanitizeID(`a\b.c`))
}

func TestNormalizeResidues(t *testing.T) {
	assert.Equal(t, "MKXXXA", NormalizeResidues(" mk u-z o\ta\r"))
	assert.Equal(t, "", NormalizeResidues(" \t - "))
}

func TestComputeStats(t *testing.T) {
	records := []*core.SequenceRecord{
		core.NewSequenceRecord("a", strings.Repeat("M", 1500), 0),
		core.NewSequenceRecord("b", strings.Repeat("M", 300), 1),
		core.NewSequenceRecord("c", strings.Repeat("M", 100), 2),
	}
	s := ComputeStats(records, 1000)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1900, s.TotalResidues)
	assert.Equal(t, 1500, s.MaxLength)
	assert.Equal(t, 1, s.LongerThan)
	assert.InDelta(t, 633.33, s.AverageLength, 0.01)

	assert.Equal(t, Stats{}, ComputeStats(nil, 1000))
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestSplit(t *testing.T) {
	var records []*core.SequenceRecord
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, core.NewSequenceRecord(id, strings.Repeat("K", 70+i), i))
	}

	parts := map[int]*bytes.Buffer{}
	n, err := Split(records, 2, func(part int) (io.WriteCloser, error) {
		buf := &bytes.Buffer{}
		parts[part] = buf
		return nopCloser{buf}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, parts, 3)

	// Every part must parse back to the records it was given
	c, err := Parse(parts[3])
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, ids(c.Records))

	c, err = Parse(parts[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(c.Records))
	assert.Equal(t, 71, c.Records[0].Length)

	_, err = Split(records, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPartSize)
}
