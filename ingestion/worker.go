package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Desarso/promptctx/stores"
)

// defaultSchedule runs the worker every 2 seconds so freshly uploaded
// documents become searchable within the chunk fetcher's retry window.
const defaultSchedule = "*/2 * * * * *"

// Worker periodically scans for documents whose text has not been split
// yet and chunks them.
type Worker struct {
	Documents stores.DocumentStore
	Logger    *log.Logger

	ChunkSize    int
	ChunkOverlap int
	BatchSize    int

	mu        sync.Mutex
	scheduler *cron.Cron
	entryID   cron.EntryID
}

// NewWorker creates a worker over the given document store with default
// chunking parameters.
func NewWorker(documents stores.DocumentStore, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		Documents: documents,
		Logger:    logger,
		BatchSize: 20,
	}
}

// Start schedules the worker. schedule is a cron expression with seconds
// ("*/2 * * * * *" by default).
func (w *Worker) Start(schedule string) error {
	if schedule == "" {
		schedule = defaultSchedule
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler != nil {
		return fmt.Errorf("ingestion worker already started")
	}

	w.scheduler = cron.New(cron.WithSeconds())
	entryID, err := w.scheduler.AddFunc(schedule, func() {
		if err := w.ProcessPending(context.Background()); err != nil {
			w.Logger.Printf("Error processing pending documents: %v", err)
		}
	})
	if err != nil {
		w.scheduler = nil
		return fmt.Errorf("failed to schedule ingestion worker: %w", err)
	}

	w.entryID = entryID
	w.scheduler.Start()
	return nil
}

// Stop halts the schedule. In-flight runs complete.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Remove(w.entryID)
		w.scheduler.Stop()
		w.scheduler = nil
	}
}

// ProcessPending chunks one batch of unprocessed documents.
func (w *Worker) ProcessPending(ctx context.Context) error {
	docs, err := w.Documents.ListUnchunkedDocuments(ctx, w.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unchunked documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	runID := uuid.New().String()[:8]
	w.Logger.Printf("Ingestion run %s: %d document(s) pending", runID, len(docs))

	for _, doc := range docs {
		count, err := ChunkDocument(ctx, w.Documents, doc, w.ChunkSize, w.ChunkOverlap)
		if err != nil {
			w.Logger.Printf("Ingestion run %s: failed to chunk document %d (%s): %v", runID, doc.ID, doc.Name, err)
			continue
		}
		w.Logger.Printf("Ingestion run %s: document %d (%s) split into %d chunk(s)", runID, doc.ID, doc.Name, count)
	}

	return nil
}
