package dictation

import (
	"fmt"
	"strings"
)

// Assemble joins per-chunk transcriptions into one document in sequence
// order, regardless of the order jobs completed in. results maps sequence
// number to text (or an already-formatted error placeholder); maxSeq is
// the highest sequence number observed. Missing entries get a marker so
// the reader can tell a chunk was lost. A single entry is returned
// verbatim; empty input yields "".
func Assemble(results map[int]string, maxSeq int) string {
	if maxSeq <= 0 {
		return ""
	}

	parts := make([]string, 0, maxSeq)
	for seq := 1; seq <= maxSeq; seq++ {
		text, ok := results[seq]
		if !ok {
			text = missingMarker(seq)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func missingMarker(seq int) string {
	return fmt.Sprintf("[missing chunk %d]", seq)
}

func errorPlaceholder(seq int, msg string) string {
	return fmt.Sprintf("[transcription failed for chunk %d: %s]", seq, msg)
}
