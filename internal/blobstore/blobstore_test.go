package blobstore

import (
	"context"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	uri, err := m.Put(ctx, "uploads/u1/2026/03/10/note-voice", "audio/ogg", []byte("abc"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if uri != "mem://uploads/u1/2026/03/10/note-voice" {
		t.Errorf("uri = %q", uri)
	}

	data, err := m.Fetch(ctx, uri)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("data = %q, want abc", data)
	}

	if _, err := m.Fetch(ctx, "mem://missing"); err == nil {
		t.Error("Fetch of missing blob succeeded, want error")
	}
}

func TestSplitURI(t *testing.T) {
	bucket, object, err := splitURI("gs://my-bucket/path/to/file.ogg", "gs://")
	if err != nil {
		t.Fatalf("splitURI failed: %v", err)
	}
	if bucket != "my-bucket" || object != "path/to/file.ogg" {
		t.Errorf("split = %q/%q", bucket, object)
	}

	if _, _, err := splitURI("http://nope", "gs://"); err == nil {
		t.Error("wrong scheme accepted")
	}
	if _, _, err := splitURI("gs://bucket-only", "gs://"); err == nil {
		t.Error("URI without object path accepted")
	}
}
