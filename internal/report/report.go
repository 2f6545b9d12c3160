// Package report renders the row-level error report for an import run: one
// line per rejected row carrying the 1-based source line, the reason code
// and a snapshot of the raw row.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"cadimport/internal/batch"
)

// Write renders rejects to w, one line each, in the order given (the batch
// validator already emits them in original row order).
func Write(w io.Writer, rejects []batch.Reject) error {
	bw := bufio.NewWriter(w)
	for _, r := range rejects {
		if _, err := fmt.Fprintf(bw, "linha=%d motivo=%q dados=%q\n", r.Line, r.Reason, strings.Join(r.Raw, ";")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Render returns the report as a byte slice, for handing to the blob store.
func Render(rejects []batch.Reject) []byte {
	var sb strings.Builder
	_ = Write(&sb, rejects)
	return []byte(sb.String())
}
