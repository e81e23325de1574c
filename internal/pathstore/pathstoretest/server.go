// Package pathstoretest provides an in-memory pathstore HTTP server for tests.
package pathstoretest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Link is a recorded PUT /links request.
type Link struct {
	From    string `json:"from_key"`
	To      string `json:"to_key"`
	Summary string `json:"summary"`
}

// Server is an in-memory pathstore.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	nodes map[string]json.RawMessage
	links []Link
}

// NewServer starts a server; callers must Close it.
func NewServer() *Server {
	s := &Server{nodes: make(map[string]json.RawMessage)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Keys returns every stored key in sorted order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Links returns the recorded links.
func (s *Server) Links() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.links)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path == "/links" && r.Method == http.MethodPut {
		var l Link
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.links = append(s.links, l)
		w.WriteHeader(http.StatusCreated)
		return
	}

	key, ok := strings.CutPrefix(r.URL.Path, "/kv/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.nodes[key] = body.Value
		w.WriteHeader(http.StatusCreated)

	case http.MethodGet:
		if prefix, scan := strings.CutSuffix(key, "/*"); scan {
			s.list(w, prefix, r.URL.Query().Get("limit"))
			return
		}
		v, found := s.nodes[key]
		if !found {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"key_path": key, "value": v})

	case http.MethodDelete:
		delete(s.nodes, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range s.nodes {
				if strings.HasPrefix(k, key+"/") {
					delete(s.nodes, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) list(w http.ResponseWriter, prefix, limitParam string) {
	limit, _ := strconv.Atoi(limitParam)
	keys := make([]string, 0)
	for k := range s.nodes {
		if strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	nodes := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, map[string]any{"key_path": k, "value": s.nodes[k]})
	}
	writeJSON(w, map[string]any{"nodes": nodes})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
