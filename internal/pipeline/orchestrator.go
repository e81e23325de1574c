package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/mdsplit/internal/chunker"
	"github.com/dgallion1/mdsplit/internal/config"
	"github.com/dgallion1/mdsplit/internal/metrics"
	"github.com/dgallion1/mdsplit/internal/normalize"
	"github.com/dgallion1/mdsplit/internal/pathstore"
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	norm    normalize.Normalizer
	store   *pathstore.SectionStore
	metrics *metrics.Metrics
	log     *slog.Logger
	cfg     config.Config

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewOrchestrator creates the pipeline. store may be nil, in which case
// results are only kept on the in-memory job.
func NewOrchestrator(cfg config.Config, norm normalize.Normalizer, store *pathstore.SectionStore, m *metrics.Metrics, log *slog.Logger) *Orchestrator {
	if norm == nil {
		norm = normalize.Noop{}
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, max(cfg.MaxQueueSize, 1)),
		norm:    norm,
		store:   store,
		metrics: m,
		log:     log,
		cfg:     cfg,
	}
}

func (o *Orchestrator) workerConfig() WorkerConfig {
	return WorkerConfig{
		Chunk: chunker.Config{
			ChunkSize:    o.cfg.DefaultChunkSize,
			ChunkOverlap: o.cfg.DefaultChunkOverlap,
			MinChunk:     o.cfg.MinChunk,
		},
		PDFFallbackPdftotext:   o.cfg.PDFFallbackPdftotext,
		MaxConcurrentNormalize: o.cfg.MaxConcurrentNormalize,
		MaxConcurrentStore:     o.cfg.MaxConcurrentStore,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range max(o.cfg.WorkerCount, 1) {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.norm, o.store, o.metrics, o.log, o.workerConfig())
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		close(o.queue)
		o.wg.Wait()
	})
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		o.metrics.ObserveJob(string(StatusFailed))
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Store returns the section store, or nil when storage is disabled.
func (o *Orchestrator) Store() *pathstore.SectionStore {
	return o.store
}

// Normalizer returns the normalizer used by workers.
func (o *Orchestrator) Normalizer() normalize.Normalizer {
	return o.norm
}
