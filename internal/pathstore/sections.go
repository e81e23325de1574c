package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/mdsplit/internal/section"
)

const (
	documentsRoot = "documents"
	byHashSegment = "by_hash"
	metaSegment   = "meta"
)

// ErrInvalidDocID is returned for document IDs that cannot be used as a single
// key segment.
var ErrInvalidDocID = errors.New("invalid document id")

var docIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateDocID reports whether id is usable as a document key segment: 1 to
// 128 letters, digits, '-' or '_', and not a name the key layout reserves.
func ValidateDocID(id string) error {
	if !docIDPattern.MatchString(id) {
		return fmt.Errorf("%w %q: want 1-128 letters, digits, '-' or '_'", ErrInvalidDocID, id)
	}
	if id == byHashSegment || id == metaSegment {
		return fmt.Errorf("%w %q: reserved", ErrInvalidDocID, id)
	}
	return nil
}

// DocumentMeta describes one stored document.
type DocumentMeta struct {
	DocID       string    `json:"doc_id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Sections    int       `json:"sections"`
	Tokens      int       `json:"tokens"`
	Normalizer  string    `json:"normalizer,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SectionStore keeps segmented documents in pathstore:
//
//	documents/<doc>/meta
//	documents/<doc>/sections/<NNNN>
//	documents/by_hash/<hash>/<doc>
//
// Each stored section is linked to its nearest enclosing section.
type SectionStore struct {
	c *Client
}

func NewSectionStore(c *Client) *SectionStore {
	return &SectionStore{c: c}
}

func DocumentKey(docID string) string {
	return documentsRoot + "/" + docID
}

func SectionKey(docID string, index int) string {
	return fmt.Sprintf("%s/sections/%04d", DocumentKey(docID), index)
}

func metaKey(docID string) string {
	return DocumentKey(docID) + "/" + metaSegment
}

func hashKey(hash string) string {
	return documentsRoot + "/" + byHashSegment + "/" + hash
}

func source(docID string) string {
	return "mdsplit:" + docID
}

// FindByHash returns the ID of a stored document with the given content hash.
func (s *SectionStore) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	children, err := s.c.ListChildren(ctx, hashKey(hash), 1)
	if err != nil {
		return "", false, err
	}
	if len(children) == 0 {
		return "", false, nil
	}
	return lastSegment(children[0].Key), true, nil
}

// PutSection writes the record form of one section.
func (s *SectionStore) PutSection(ctx context.Context, docID string, index int, n section.Normalized) error {
	if err := ValidateDocID(docID); err != nil {
		return err
	}
	return s.c.PutNode(ctx, SectionKey(docID, index), NodeRequest{
		Value:  n.Record(),
		Source: source(docID),
	})
}

// LinkParent records that section child sits under section parent.
func (s *SectionStore) LinkParent(ctx context.Context, docID string, child, parent int, parentHeader string) error {
	if err := ValidateDocID(docID); err != nil {
		return err
	}
	return s.c.PutLink(ctx, LinkRequest{
		From:    SectionKey(docID, child),
		To:      SectionKey(docID, parent),
		Weight:  1,
		Summary: "child of " + parentHeader,
	})
}

// PutMeta writes the document metadata and its hash index entry.
func (s *SectionStore) PutMeta(ctx context.Context, meta DocumentMeta) error {
	if err := ValidateDocID(meta.DocID); err != nil {
		return err
	}
	if err := s.c.PutNode(ctx, metaKey(meta.DocID), NodeRequest{
		Value:  meta,
		Source: source(meta.DocID),
	}); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if meta.ContentHash == "" {
		return nil
	}
	err := s.c.PutNode(ctx, hashKey(meta.ContentHash)+"/"+meta.DocID, NodeRequest{
		Value: map[string]any{
			"filename":   meta.Filename,
			"created_at": meta.CreatedAt.Format(time.RFC3339),
		},
		Source: source(meta.DocID),
	})
	if err != nil {
		return fmt.Errorf("write hash index: %w", err)
	}
	return nil
}

// GetMeta returns a document's metadata, or nil when it is not stored.
func (s *SectionStore) GetMeta(ctx context.Context, docID string) (*DocumentMeta, error) {
	if err := ValidateDocID(docID); err != nil {
		return nil, err
	}
	node, err := s.c.GetNode(ctx, metaKey(docID))
	if err != nil || node == nil {
		return nil, err
	}
	var meta DocumentMeta
	if err := decodeValue(node.Value, &meta); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", docID, err)
	}
	return &meta, nil
}

// GetSections returns the stored records of a document in section order.
func (s *SectionStore) GetSections(ctx context.Context, docID string) ([]section.NormalizedRecord, error) {
	if err := ValidateDocID(docID); err != nil {
		return nil, err
	}
	nodes, err := s.c.ListChildren(ctx, DocumentKey(docID)+"/sections", 0)
	if err != nil {
		return nil, err
	}
	records := make([]section.NormalizedRecord, 0, len(nodes))
	for _, n := range nodes {
		var rec section.NormalizedRecord
		if err := decodeValue(n.Value, &rec); err != nil {
			return nil, fmt.Errorf("decode section %s: %w", n.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListDocuments returns metadata for up to limit stored documents; limit <= 0
// returns all of them.
func (s *SectionStore) ListDocuments(ctx context.Context, limit int) ([]DocumentMeta, error) {
	nodes, err := s.c.ListChildren(ctx, documentsRoot, 0)
	if err != nil {
		return nil, err
	}
	docs := []DocumentMeta{}
	for _, n := range nodes {
		if lastSegment(n.Key) != metaSegment {
			continue
		}
		var meta DocumentMeta
		if err := decodeValue(n.Value, &meta); err != nil {
			continue
		}
		docs = append(docs, meta)
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	return docs, nil
}

// DeleteDocument removes a document, its sections and its hash index entry.
// It reports false when the document does not exist.
func (s *SectionStore) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	meta, err := s.GetMeta(ctx, docID)
	if err != nil {
		return false, err
	}
	if meta == nil {
		return false, nil
	}
	if err := s.c.DeleteNode(ctx, DocumentKey(docID), true); err != nil {
		return false, err
	}
	if meta.ContentHash != "" {
		if err := s.c.DeleteNode(ctx, hashKey(meta.ContentHash)+"/"+docID, false); err != nil {
			return true, fmt.Errorf("delete hash index: %w", err)
		}
	}
	return true, nil
}

// decodeValue converts a generic JSON value into v.
func decodeValue(value, v any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// lastSegment returns the final component of a key; pathstore may report keys
// with '.' or '/' separators.
func lastSegment(key string) string {
	if i := strings.LastIndexAny(key, "./"); i >= 0 {
		return key[i+1:]
	}
	return key
}
