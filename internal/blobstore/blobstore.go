// Package blobstore archives raw upload media (voice notes, receipt images)
// so a parsing run can be replayed or inspected after the fact.
package blobstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Store is a write-once blob archive keyed by URI.
type Store interface {
	// Put stores data under name and returns the blob's URI.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Fetch returns the bytes previously stored at uri.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Memory is an in-process Store for tests and single-node deployments
// without a bucket configured.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	uri := "mem://" + name
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.blobs[uri] = cp
	m.mu.Unlock()
	return uri, nil
}

func (m *Memory) Fetch(ctx context.Context, uri string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.blobs[uri]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blobstore: no blob at %s", uri)
	}
	return data, nil
}

// splitURI splits "scheme://bucket/object" into bucket and object path.
func splitURI(uri, scheme string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("invalid URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
