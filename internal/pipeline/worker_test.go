package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mdsplit/internal/chunker"
	"github.com/dgallion1/mdsplit/internal/config"
	"github.com/dgallion1/mdsplit/internal/normalize"
	"github.com/dgallion1/mdsplit/internal/pathstore"
	"github.com/dgallion1/mdsplit/internal/pathstore/pathstoretest"
	"github.com/dgallion1/mdsplit/internal/section"
)

const doc = "# Guide\nIntro\n## Install\nRun it.\n## Use\nCall it.\n```sh\n# not a header\n```"

var discard = slog.New(slog.DiscardHandler)

// failingNormalizer rejects sections whose header contains "Bad".
type failingNormalizer struct{}

func (failingNormalizer) Name() string { return "failing" }

func (failingNormalizer) Normalize(_ context.Context, s section.Section) section.Normalized {
	if strings.Contains(s.Header(), "Bad") {
		return section.Unnormalized(s, "failing", errors.New("rewrite rejected"))
	}
	return section.Rewrite(s, strings.ToUpper(s.Header()), s.Body(), section.NormalizeMeta{Normalizer: "failing"})
}

func newTestWorker(t *testing.T, norm normalize.Normalizer) (*Worker, *pathstoretest.Server) {
	t.Helper()
	srv := pathstoretest.NewServer()
	t.Cleanup(srv.Close)
	store := pathstore.NewSectionStore(pathstore.NewClient(srv.URL, "key"))
	w := NewWorker(norm, store, nil, discard, WorkerConfig{
		Chunk:                  chunker.Config{ChunkSize: 500, ChunkOverlap: 50, MinChunk: 1},
		MaxConcurrentNormalize: 2,
		MaxConcurrentStore:     2,
	})
	return w, srv
}

func TestWorker_ProcessCompleted(t *testing.T) {
	w, srv := newTestWorker(t, normalize.Noop{})
	job := NewJob("guide.md", "", "doc-1", []byte(doc))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Progress.Errors)
	assert.Equal(t, "guide", snap.Title)
	assert.Equal(t, 3, snap.Progress.TotalSections)
	assert.Equal(t, 3, snap.Progress.SectionsNormalized)
	assert.Equal(t, 3, snap.Progress.SectionsStored)
	assert.Equal(t, ContentHashHex([]byte(doc)), snap.ContentHash)
	assert.Nil(t, job.FileData())

	assert.Equal(t, []string{
		"documents/by_hash/" + snap.ContentHash + "/doc-1",
		"documents/doc-1/meta",
		"documents/doc-1/sections/0000",
		"documents/doc-1/sections/0001",
		"documents/doc-1/sections/0002",
	}, srv.Keys())

	links := srv.Links()
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, "documents/doc-1/sections/0000", l.To)
		assert.Equal(t, "child of Guide", l.Summary)
	}

	ns, chunks := job.Results()
	require.Len(t, ns, 3)
	assert.Equal(t, "Call it.\n```sh\n# not a header\n```", ns[2].Section().Body())
	assert.NotEmpty(t, chunks)

	meta, err := w.store.GetMeta(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotNil(t, meta)
	want := 0
	for _, n := range ns {
		want += chunker.SectionTokens(n.Section())
	}
	assert.Positive(t, want)
	assert.Equal(t, want, meta.Tokens)
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	w, _ := newTestWorker(t, normalize.Noop{})
	ctx := context.Background()

	first := NewJob("guide.md", "", "doc-1", []byte(doc))
	w.Process(ctx, first)
	require.Equal(t, StatusCompleted, first.CurrentStatus())

	second := NewJob("copy.md", "", "doc-2", []byte(doc))
	w.Process(ctx, second)
	snap := second.Snapshot()
	assert.Equal(t, StatusDupSkipped, snap.Status)
	assert.Equal(t, "doc-1", snap.DuplicateOf)

	forced := NewJob("copy.md", "", "doc-3", []byte(doc))
	forced.Force = true
	w.Process(ctx, forced)
	assert.Equal(t, StatusCompleted, forced.CurrentStatus())
}

func TestWorker_PartialOnNormalizeErrors(t *testing.T) {
	w, _ := newTestWorker(t, failingNormalizer{})
	job := NewJob("doc.md", "", "doc-1", []byte("# Good\none\n# Bad\ntwo"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	require.Len(t, snap.Progress.Errors, 1)
	assert.Contains(t, snap.Progress.Errors[0], "section 1")
	assert.Equal(t, 2, snap.Progress.SectionsStored)

	ns, _ := job.Results()
	require.Len(t, ns, 2)
	assert.Equal(t, "GOOD", ns[0].Section().Header())
	assert.Equal(t, "Bad", ns[1].Section().Header())
}

func TestWorker_Failures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		phase    string
	}{
		{"unsupported extension", "image.png", "data", "parsing"},
		{"no headers", "notes.md", "just text\n#tag", "segmenting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, srv := newTestWorker(t, normalize.Noop{})
			job := NewJob(tt.filename, "", "", []byte(tt.data))
			w.Process(context.Background(), job)

			snap := job.Snapshot()
			assert.Equal(t, StatusFailed, snap.Status)
			assert.Equal(t, tt.phase, snap.Phase)
			assert.NotEmpty(t, snap.Progress.Errors)
			assert.Empty(t, srv.Keys())
		})
	}
}

func TestWorker_StoreUnavailable(t *testing.T) {
	w, srv := newTestWorker(t, normalize.Noop{})
	srv.Close()

	job := NewJob("guide.md", "", "doc-1", []byte(doc))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "storing", snap.Phase)
	assert.Len(t, snap.Progress.Errors, 3)
}

func TestWorker_WithoutStore(t *testing.T) {
	w := NewWorker(nil, nil, nil, discard, WorkerConfig{})
	job := NewJob("guide.md", "Custom", "", []byte(doc))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "Custom", snap.Title)
	assert.Equal(t, 0, snap.Progress.SectionsStored)
	ns, _ := job.Results()
	assert.Len(t, ns, 3)
}

func TestOrchestrator_SubmitAndComplete(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour, MaxConcurrentNormalize: 1, MaxConcurrentStore: 1}
	o := NewOrchestrator(cfg, normalize.ASCIIFolder{}, nil, nil, discard)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("notes.md", "", "", []byte("# Café\nnaïve"))
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))

	require.Eventually(t, func() bool { return job.CurrentStatus().Terminal() }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusCompleted, job.CurrentStatus())

	ns, _ := job.Results()
	require.Len(t, ns, 1)
	assert.Equal(t, "Cafe", ns[0].Section().Header())
	assert.Equal(t, "naive", ns[0].Section().Body())
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, nil, nil, discard)

	require.NoError(t, o.Submit(NewJob("a.md", "", "", []byte("# A"))))
	overflow := NewJob("b.md", "", "", []byte("# B"))
	require.Error(t, o.Submit(overflow))
	assert.Equal(t, StatusFailed, overflow.CurrentStatus())
	assert.Equal(t, 1, o.QueueDepth())

	o.Stop()
	o.Stop()
}
