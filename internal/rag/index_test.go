package rag

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndexSearchRanksByDistance(t *testing.T) {
	t.Parallel()

	ix := NewIndex()
	ix.Add(Chunk{Source: "a", Content: "far", Vector: []float32{10, 10}})
	ix.Add(Chunk{Source: "b", Content: "near", Vector: []float32{1, 1}})
	ix.Add(Chunk{Source: "c", Content: "nearest", Vector: []float32{0, 0.5}})

	got := ix.Search([]float32{0, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("Search returned %d chunks, want 2", len(got))
	}
	if got[0].Content != "nearest" || got[1].Content != "near" {
		t.Errorf("Search order = [%s, %s], want [nearest, near]", got[0].Content, got[1].Content)
	}
}

func TestIndexSearchSkipsMismatchedDimensions(t *testing.T) {
	t.Parallel()

	ix := NewIndex()
	ix.Add(Chunk{Content: "ok", Vector: []float32{1, 2}})
	ix.Add(Chunk{Content: "bad dim", Vector: []float32{1, 2, 3}})

	got := ix.Search([]float32{0, 0}, 10)
	if len(got) != 1 || got[0].Content != "ok" {
		t.Fatalf("Search = %#v, want only the matching-dimension chunk", got)
	}
}

func TestIndexSearchKLargerThanIndex(t *testing.T) {
	t.Parallel()

	ix := NewIndex()
	ix.Add(Chunk{Content: "only", Vector: []float32{1}})

	if got := ix.Search([]float32{0}, 10); len(got) != 1 {
		t.Fatalf("Search returned %d chunks, want 1", len(got))
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	t.Parallel()

	ix := NewIndex()
	ix.Add(Chunk{Source: "https://a", Content: "first chunk", Vector: []float32{0.1, 0.2, 0.3}})
	ix.Add(Chunk{Source: "https://b", Content: "second chunk", Vector: []float32{0.4, 0.5, 0.6}})

	path := filepath.Join(t.TempDir(), "index.parquet")
	if err := ix.WriteSnapshotFile(path); err != nil {
		t.Fatalf("WriteSnapshotFile: %v", err)
	}

	loaded, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile: %v", err)
	}

	if diff := cmp.Diff(ix.chunks, loaded.chunks); diff != "" {
		t.Errorf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}
