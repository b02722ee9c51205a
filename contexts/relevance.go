package contexts

import (
	"strings"

	"github.com/Desarso/promptctx/stores"
)

const (
	// generalQueryLimit caps how many chunks a broad query gets.
	generalQueryLimit = 5
	// keywordMatchLimit caps how many chunks a specific query gets.
	keywordMatchLimit = 3
	// minKeywordLength filters out stopword-ish short tokens.
	minKeywordLength = 2
)

// generalTerms mark a message as asking about the uploaded material as a
// whole rather than a specific detail.
var generalTerms = []string{
	"this", "document", "file", "pdf", "uploaded", "attachment", "content",
}

// SelectRelevantChunks picks which document chunks to include for a user
// message. Broad queries ("summarize this pdf") get the first chunks in
// order; specific queries get chunks whose content overlaps the message's
// keywords. Non-empty input always yields a non-empty selection.
//
// Pure and deterministic: no I/O, same output for the same ordered input.
func SelectRelevantChunks(chunks []stores.DocumentChunk, userMessage string) []stores.DocumentChunk {
	if len(chunks) == 0 {
		return nil
	}

	lower := strings.ToLower(userMessage)

	if isGeneralQuery(lower) {
		if len(chunks) > generalQueryLimit {
			return chunks[:generalQueryLimit]
		}
		return chunks
	}

	keywords := extractKeywords(lower)

	var matched []stores.DocumentChunk
	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				matched = append(matched, chunk)
				break
			}
		}
		if len(matched) == keywordMatchLimit {
			break
		}
	}

	if len(matched) > 0 {
		return matched
	}

	// No keyword overlap at all: fall back to the leading chunks rather
	// than returning nothing for a document the user explicitly attached.
	if len(chunks) > keywordMatchLimit {
		return chunks[:keywordMatchLimit]
	}
	return chunks
}

// isGeneralQuery reports whether the lower-cased message asks about the
// material as a whole. "summar" catches summary/summarize/summarise.
func isGeneralQuery(lowerMessage string) bool {
	if strings.Contains(lowerMessage, "summar") {
		return true
	}
	for _, term := range generalTerms {
		if strings.Contains(lowerMessage, term) {
			return true
		}
	}
	return false
}

// extractKeywords tokenizes on whitespace and keeps tokens long enough to
// carry meaning.
func extractKeywords(lowerMessage string) []string {
	var keywords []string
	for _, token := range strings.Fields(lowerMessage) {
		if len(token) > minKeywordLength {
			keywords = append(keywords, token)
		}
	}
	return keywords
}
