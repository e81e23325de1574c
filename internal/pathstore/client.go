// Package pathstore is a client for the pathstore HTTP key/value API and the
// section store built on it.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Node is a stored key and its value.
type Node struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From          string  `json:"from_key"`
	To            string  `json:"to_key"`
	Weight        float64 `json:"weight"`
	Summary       string  `json:"summary,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// do sends one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded response. A 404 is reported as found=false
// when notFoundOK is set.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, notFoundOK bool, okStatus ...int) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal %s: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if notFoundOK && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if !slices.Contains(okStatus, resp.StatusCode) {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode %s: %w", op, err)
		}
	}
	return true, nil
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	_, err := c.do(ctx, "put node "+key, http.MethodPut, "/kv/"+key, req, nil, false,
		http.StatusOK, http.StatusCreated)
	return err
}

// GetNode retrieves a node by key. A missing key returns nil, nil.
func (c *Client) GetNode(ctx context.Context, key string) (*Node, error) {
	var node Node
	found, err := c.do(ctx, "get node "+key, http.MethodGet, "/kv/"+key, nil, &node, true, http.StatusOK)
	if err != nil || !found {
		return nil, err
	}
	return &node, nil
}

// DeleteNode deletes a node and optionally its children.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	path := "/kv/" + key
	if recursive {
		path += "?children=true"
	}
	_, err := c.do(ctx, "delete node "+key, http.MethodDelete, path, nil, nil, false,
		http.StatusOK, http.StatusNoContent)
	return err
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]Node, error) {
	path := "/kv/" + key + "/*"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(strconv.Itoa(limit))
	}
	var result struct {
		Nodes []Node `json:"nodes"`
	}
	if _, err := c.do(ctx, "list children "+key, http.MethodGet, path, nil, &result, false, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Nodes, nil
}

// PutLink creates or updates an edge between two nodes.
func (c *Client) PutLink(ctx context.Context, req LinkRequest) error {
	_, err := c.do(ctx, "put link", http.MethodPut, "/links", req, nil, false,
		http.StatusOK, http.StatusCreated)
	return err
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
