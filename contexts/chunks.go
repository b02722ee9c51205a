package contexts

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Desarso/promptctx/stores"
)

const (
	// chunkRetryAttempts bounds how many retry rounds follow the initial
	// fetch when no chunks exist yet.
	chunkRetryAttempts = 5
	// chunkRetryBase is the first retry delay; each subsequent round
	// doubles it (100, 200, 400, 800, 1600ms — worst case ~3.1s total).
	// Text extraction runs in an out-of-band ingestion worker, and this
	// schedule typically straddles its latency without stalling the chat
	// response for long.
	chunkRetryBase = 100 * time.Millisecond
)

// ChunkFetcher fetches document chunks, retrying with exponential backoff
// while the ingestion worker has not produced any yet. An empty result after
// all retries is a normal outcome; a fetch error is not (it indicates a
// persistence problem, not ingestion lag) and fails the whole call.
type ChunkFetcher struct {
	Documents stores.DocumentStore
	Logger    *log.Logger

	// RetryBase overrides chunkRetryBase when non-zero. Tests shrink it.
	RetryBase time.Duration
}

// NewChunkFetcher creates a fetcher over the given document store.
func NewChunkFetcher(documents stores.DocumentStore, logger *log.Logger) *ChunkFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &ChunkFetcher{Documents: documents, Logger: logger}
}

// FetchChunksWithRetry fetches chunks for every document, concatenated in
// document order. When the combined set is empty it retries with doubling
// delays, re-fetching all documents each round, and stops at the first
// non-empty round. Exhausting all retries returns an empty (non-error)
// result and logs a warning.
func (f *ChunkFetcher) FetchChunksWithRetry(ctx context.Context, documents []stores.Document) ([]stores.DocumentChunk, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	base := f.RetryBase
	if base <= 0 {
		base = chunkRetryBase
	}

	chunks, err := f.fetchAll(ctx, documents)
	if err != nil {
		return nil, err
	}

	delay := base
	for attempt := 0; attempt < chunkRetryAttempts && len(chunks) == 0; attempt++ {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2

		chunks, err = f.fetchAll(ctx, documents)
		if err != nil {
			return nil, err
		}
	}

	if len(chunks) == 0 {
		f.Logger.Printf("Warning: no chunks found for %d document(s) after %d retries, ingestion may still be running", len(documents), chunkRetryAttempts)
	}

	return chunks, nil
}

// fetchAll issues one concurrent fetch per document and flattens the
// results in document order.
func (f *ChunkFetcher) fetchAll(ctx context.Context, documents []stores.Document) ([]stores.DocumentChunk, error) {
	perDoc := make([][]stores.DocumentChunk, len(documents))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, doc := range documents {
		eg.Go(func() error {
			chunks, err := f.Documents.GetDocumentChunksByDocumentID(egCtx, doc.ID)
			if err != nil {
				return err
			}
			perDoc[i] = chunks
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var combined []stores.DocumentChunk
	for _, chunks := range perDoc {
		combined = append(combined, chunks...)
	}
	return combined, nil
}
