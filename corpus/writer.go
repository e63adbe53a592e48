package corpus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/poiesic/seqembed/core"
)

// DefaultLineWidth is the number of residues per body line written by WriteFASTA.
const DefaultLineWidth = 60

// WriteFASTA writes records as FASTA, wrapping bodies at DefaultLineWidth.
func WriteFASTA(w io.Writer, records []*core.SequenceRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%c%s\n", headerPrefix, r.ID); err != nil {
			return err
		}
		for i := 0; i < len(r.Residues); i += DefaultLineWidth {
			end := min(i+DefaultLineWidth, len(r.Residues))
			if _, err := fmt.Fprintln(bw, r.Residues[i:end]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Split writes records into consecutive parts of partSize records each.
// open is called once per part with a 1-based part number; the returned
// writer is closed after the part is written. Returns the number of parts.
func Split(records []*core.SequenceRecord, partSize int, open func(part int) (io.WriteCloser, error)) (int, error) {
	if partSize <= 0 {
		return 0, ErrInvalidPartSize
	}

	parts := 0
	for i := 0; i < len(records); i += partSize {
		end := min(i+partSize, len(records))
		parts++

		w, err := open(parts)
		if err != nil {
			return parts - 1, fmt.Errorf("failed to open part %d: %w", parts, err)
		}
		if err := WriteFASTA(w, records[i:end]); err != nil {
			w.Close()
			return parts - 1, fmt.Errorf("failed to write part %d: %w", parts, err)
		}
		if err := w.Close(); err != nil {
			return parts - 1, fmt.Errorf("failed to close part %d: %w", parts, err)
		}
	}
	return parts, nil
}
