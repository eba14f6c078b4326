package search

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

const matchPrefix = "Hybrid search match "

// FormatContext renders fused results as one "Hybrid search match {rank}: {content}"
// line per entry, in input order. Empty input yields "".
func FormatContext(fused []result.Fused) string {
	var b strings.Builder
	for i := range fused {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(matchPrefix)
		b.WriteString(strconv.Itoa(fused[i].Rank()))
		b.WriteString(": ")
		b.WriteString(fused[i].Content())
	}
	return b.String()
}
