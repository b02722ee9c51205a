// Package ingestion splits uploaded documents into chunks out of band.
// The context pipeline tolerates its lag: a document with zero chunks is a
// normal transient state, and the chunk fetcher retries around it.
package ingestion

import (
	"context"
	"strings"

	"github.com/Desarso/promptctx/stores"
)

const (
	// defaultChunkSize is the target chunk length in characters.
	defaultChunkSize = 1200
	// defaultChunkOverlap carries trailing context into the next chunk.
	defaultChunkOverlap = 200
)

// SplitText splits text into chunks of roughly chunkSize characters,
// preferring paragraph boundaries and overlapping consecutive chunks by
// overlap characters. Zero or negative arguments fall back to defaults.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer breaking at a paragraph, then a sentence, then a space.
		cut := end
		window := text[start:end]
		if idx := strings.LastIndex(window, "\n\n"); idx > chunkSize/2 {
			cut = start + idx
		} else if idx := strings.LastIndex(window, ". "); idx > chunkSize/2 {
			cut = start + idx + 1
		} else if idx := strings.LastIndexByte(window, ' '); idx > chunkSize/2 {
			cut = start + idx
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// ChunkDocument splits one document's raw text and persists the resulting
// chunks, marking the document chunked on success.
func ChunkDocument(ctx context.Context, store stores.DocumentStore, doc stores.Document, chunkSize, overlap int) (int, error) {
	pieces := SplitText(doc.RawText, chunkSize, overlap)

	chunks := make([]stores.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = stores.DocumentChunk{
			DocumentID: doc.ID,
			Ordinal:    i + 1,
			Content:    piece,
		}
	}

	if err := store.SaveDocumentChunks(ctx, chunks); err != nil {
		return 0, err
	}
	if err := store.MarkDocumentChunked(ctx, doc.ID); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
