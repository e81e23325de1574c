package pathstore_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mdsplit/internal/pathstore"
	"github.com/dgallion1/mdsplit/internal/pathstore/pathstoretest"
	"github.com/dgallion1/mdsplit/internal/section"
)

func newStore(t *testing.T) (*pathstore.SectionStore, *pathstoretest.Server) {
	t.Helper()
	srv := pathstoretest.NewServer()
	t.Cleanup(srv.Close)
	return pathstore.NewSectionStore(pathstore.NewClient(srv.URL, "key")), srv
}

func TestSectionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, srv := newStore(t)

	secs := []section.Section{
		section.New("A", "alpha", 1, section.Parents{}),
		section.New("B", "beta", 2, section.Parents{"A"}),
	}
	for i, s := range secs {
		require.NoError(t, store.PutSection(ctx, "doc1", i, section.Unnormalized(s, "none", nil)))
	}
	require.NoError(t, store.LinkParent(ctx, "doc1", 1, 0, "A"))

	meta := pathstore.DocumentMeta{
		DocID:       "doc1",
		Title:       "Doc",
		Filename:    "doc.md",
		ContentHash: "abc",
		Sections:    2,
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.PutMeta(ctx, meta))

	assert.Equal(t, []string{
		"documents/by_hash/abc/doc1",
		"documents/doc1/meta",
		"documents/doc1/sections/0000",
		"documents/doc1/sections/0001",
	}, srv.Keys())
	require.Len(t, srv.Links(), 1)
	assert.Equal(t, "documents/doc1/sections/0001", srv.Links()[0].From)
	assert.Equal(t, "documents/doc1/sections/0000", srv.Links()[0].To)

	got, err := store.GetMeta(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, meta, *got)

	records, err := store.GetSections(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[1].Header)
	assert.Equal(t, map[string]string{"h1": "A"}, records[1].Metadata.Parents)

	docID, found, err := store.FindByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "doc1", docID)

	docs, err := store.ListDocuments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Doc", docs[0].Title)
}

func TestSectionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, srv := newStore(t)

	s := section.New("A", "alpha", 1, section.Parents{})
	require.NoError(t, store.PutSection(ctx, "doc1", 0, section.Unnormalized(s, "none", nil)))
	require.NoError(t, store.PutMeta(ctx, pathstore.DocumentMeta{DocID: "doc1", ContentHash: "abc"}))

	deleted, err := store.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, srv.Keys())

	deleted, err = store.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, found, err := store.FindByHash(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestValidateDocID(t *testing.T) {
	for _, id := range []string{"doc1", "doc-1", "Doc_2", "0190b4c2-7d0e-4a8e-9c7e-1f6c2a0b9d3e"} {
		assert.NoError(t, pathstore.ValidateDocID(id), id)
	}
	bad := []string{"", "by_hash", "meta", "a/b", "../x", ".", "..", "a.b", `a\b`, "sp ace", strings.Repeat("x", 129)}
	for _, id := range bad {
		err := pathstore.ValidateDocID(id)
		assert.ErrorIs(t, err, pathstore.ErrInvalidDocID, "%q", id)
	}
}

func TestSectionStore_ReservedDocIDCannotTouchHashIndex(t *testing.T) {
	ctx := context.Background()
	store, srv := newStore(t)

	require.NoError(t, store.PutMeta(ctx, pathstore.DocumentMeta{DocID: "real", ContentHash: "abc"}))

	err := store.PutMeta(ctx, pathstore.DocumentMeta{DocID: "by_hash", ContentHash: "def"})
	require.ErrorIs(t, err, pathstore.ErrInvalidDocID)
	err = store.PutSection(ctx, "a/b", 0, section.Unnormalized(section.New("A", "", 1, section.Parents{}), "none", nil))
	require.ErrorIs(t, err, pathstore.ErrInvalidDocID)

	deleted, err := store.DeleteDocument(ctx, "by_hash")
	require.ErrorIs(t, err, pathstore.ErrInvalidDocID)
	assert.False(t, deleted)

	assert.Equal(t, []string{"documents/by_hash/abc/real", "documents/real/meta"}, srv.Keys())
	docID, found, err := store.FindByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "real", docID)
}

func TestClient_StatusError(t *testing.T) {
	srv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	ts := newHTTPServer(t, srv)

	err := pathstore.NewClient(ts, "key").PutNode(context.Background(), "x", pathstore.NodeRequest{Value: 1})
	var se *pathstore.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestClient_GetNodeMissing(t *testing.T) {
	srv := pathstoretest.NewServer()
	defer srv.Close()

	node, err := pathstore.NewClient(srv.URL, "key").GetNode(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, node)
}
