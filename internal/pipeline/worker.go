package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/mdsplit/internal/chunker"
	"github.com/dgallion1/mdsplit/internal/metrics"
	"github.com/dgallion1/mdsplit/internal/normalize"
	"github.com/dgallion1/mdsplit/internal/parser"
	"github.com/dgallion1/mdsplit/internal/pathstore"
	"github.com/dgallion1/mdsplit/internal/section"
	"github.com/dgallion1/mdsplit/internal/segmenter"
)

// Worker processes a single document job.
type Worker struct {
	seg     *segmenter.Segmenter
	norm    normalize.Normalizer
	store   *pathstore.SectionStore // nil keeps results in memory only
	metrics *metrics.Metrics
	log     *slog.Logger

	chunkCfg  chunker.Config
	pdftotext bool

	maxConcurrentNormalize int
	maxConcurrentStore     int
}

// WorkerConfig holds the per-worker tunables.
type WorkerConfig struct {
	Chunk                  chunker.Config
	PDFFallbackPdftotext   bool
	MaxConcurrentNormalize int
	MaxConcurrentStore     int
}

func NewWorker(norm normalize.Normalizer, store *pathstore.SectionStore, m *metrics.Metrics, log *slog.Logger, cfg WorkerConfig) *Worker {
	if norm == nil {
		norm = normalize.Noop{}
	}
	return &Worker{
		seg:                    segmenter.New(segmenter.WithLogger(log)),
		norm:                   norm,
		store:                  store,
		metrics:                m,
		log:                    log,
		chunkCfg:               cfg.Chunk,
		pdftotext:              cfg.PDFFallbackPdftotext,
		maxConcurrentNormalize: max(cfg.MaxConcurrentNormalize, 1),
		maxConcurrentStore:     max(cfg.MaxConcurrentStore, 1),
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	status := w.process(ctx, job, log)
	w.metrics.ObserveJob(string(status))
}

func (w *Worker) process(ctx context.Context, job *Job, log *slog.Logger) JobStatus {
	fail := func(phase string, err error) JobStatus {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return StatusFailed
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		return fail("parsing", err)
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdftotext
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		return fail("parsing", fmt.Errorf("parse: %w", err))
	}
	job.releaseFileData()

	job.mu.Lock()
	if job.Title == "" {
		job.Title = doc.Title
	}
	title := job.Title
	job.ContentHash = ContentHashHex([]byte(doc.Markdown))
	job.mu.Unlock()

	// Phase 1.5: Dedup check
	if w.store != nil && !job.Force {
		existing, found, err := w.store.FindByHash(ctx, job.ContentHash)
		switch {
		case err != nil:
			log.Warn("dedup check failed, proceeding", "error", err)
		case found:
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.mu.Lock()
			job.DuplicateOf = existing
			job.mu.Unlock()
			job.SetStatus(StatusDupSkipped, "dedup")
			return StatusDupSkipped
		}
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	sections := w.seg.Split(doc.Markdown)
	job.SetSections(sections)
	w.metrics.ObserveSections("ingest", sections)
	log.Info("segmented document", "sections", len(sections))
	if len(sections) == 0 {
		log.Warn("no sections produced")
		return fail("segmenting", fmt.Errorf("no headers found in %s", job.Filename))
	}

	// Phase 3: Normalize with bounded concurrency. Results keep section order.
	job.SetStatus(StatusNormalizing, "normalizing")
	normalized := w.normalizeAll(ctx, job, sections)
	w.metrics.ObserveNormalized(normalized)

	hadErrors := false
	for i, n := range normalized {
		if n.Meta.Error != "" {
			log.Error("normalization failed", "section", i, "error", n.Meta.Error)
			job.AddError(fmt.Sprintf("section %d: %s", i, n.Meta.Error))
			hadErrors = true
		}
	}

	chunks := chunker.ChunkSections(section.Sections(normalized), w.chunkCfg)
	job.SetResults(normalized, chunks)
	log.Info("normalization complete", "normalizer", w.norm.Name(), "chunks", len(chunks), "errors", hadErrors)

	if w.store == nil {
		if hadErrors {
			job.SetStatus(StatusPartial, "done")
			return StatusPartial
		}
		job.SetStatus(StatusCompleted, "done")
		return StatusCompleted
	}

	// Phase 4: Store sections, parent links and metadata.
	job.SetStatus(StatusStoring, "storing")
	stored, storeErrors := w.storeAll(ctx, job, log, normalized)
	hadErrors = hadErrors || storeErrors
	log.Info("storage complete", "stored", stored, "total", len(normalized))

	if stored > 0 {
		tokens := 0
		for _, n := range normalized {
			tokens += chunker.SectionTokens(n.Section())
		}
		err := w.store.PutMeta(ctx, pathstore.DocumentMeta{
			DocID:       job.DocID,
			Title:       title,
			Filename:    job.Filename,
			ContentHash: job.ContentHash,
			Sections:    len(normalized),
			Tokens:      tokens,
			Normalizer:  w.norm.Name(),
			CreatedAt:   job.CreatedAt,
		})
		if err != nil {
			log.Error("meta write failed", "error", err)
			job.AddError(fmt.Sprintf("meta: %s", err))
			hadErrors = true
		}
	}

	switch {
	case hadErrors && stored > 0:
		job.SetStatus(StatusPartial, "done")
		return StatusPartial
	case hadErrors || stored == 0:
		job.SetStatus(StatusFailed, "storing")
		return StatusFailed
	default:
		job.SetStatus(StatusCompleted, "done")
		return StatusCompleted
	}
}

func (w *Worker) normalizeAll(ctx context.Context, job *Job, sections []section.Section) []section.Normalized {
	out := make([]section.Normalized, len(sections))
	sem := make(chan struct{}, w.maxConcurrentNormalize)
	done := make(chan struct{}, len(sections))

	for i, s := range sections {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			out[i] = w.norm.Normalize(ctx, s)
			job.IncrNormalized()
			done <- struct{}{}
		}()
	}
	for range sections {
		<-done
	}
	return out
}

// storeAll writes every section, then links each one to its nearest enclosing
// section. It returns the number of sections written.
func (w *Worker) storeAll(ctx context.Context, job *Job, log *slog.Logger, normalized []section.Normalized) (int, bool) {
	type storeResult struct {
		idx int
		err error
	}
	results := make(chan storeResult, len(normalized))
	sem := make(chan struct{}, w.maxConcurrentStore)

	for i, n := range normalized {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			results <- storeResult{idx: i, err: w.store.PutSection(ctx, job.DocID, i, n)}
		}()
	}

	ok := make([]bool, len(normalized))
	stored := 0
	hadErrors := false
	for range normalized {
		r := <-results
		if r.err != nil {
			log.Error("store failed", "section", r.idx, "error", r.err)
			job.AddError(fmt.Sprintf("store section %d: %s", r.idx, r.err))
			hadErrors = true
			continue
		}
		ok[r.idx] = true
		stored++
	}
	job.AddStored(stored)

	sections := section.Sections(normalized)
	for child, parent := range section.ParentIndexes(sections) {
		if parent < 0 || !ok[child] || !ok[parent] {
			continue
		}
		if err := w.store.LinkParent(ctx, job.DocID, child, parent, sections[parent].Header()); err != nil {
			log.Warn("parent link failed", "section", child, "parent", parent, "error", err)
		}
	}
	return stored, hadErrors
}
