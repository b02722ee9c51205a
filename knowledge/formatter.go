package knowledge

import (
	"fmt"
	"strings"

	"github.com/Desarso/promptctx/models"
)

// FormatKnowledgeContext renders retrieved chunks as numbered entries with
// their similarity scores, separated by blank lines.
func FormatKnowledgeContext(chunks []models.Knowledge_Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] (similarity %.2f)\n%s", i+1, chunk.Similarity, chunk.Content)
	}
	return sb.String()
}
