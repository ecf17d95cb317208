package rag

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"backend/internal/storage"
)

// Chunk is one indexed piece of a source document.
type Chunk struct {
	Source  string
	Content string
	Vector  []float32
}

// Index is an exact (flat) L2 vector index held in memory. It is built once
// per cold start and read-only afterwards, so Search needs no locking.
type Index struct {
	chunks []Chunk
}

func NewIndex() *Index {
	return &Index{}
}

func (ix *Index) Add(c Chunk) {
	ix.chunks = append(ix.chunks, c)
}

func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search returns the k chunks nearest to query by squared L2 distance.
func (ix *Index) Search(query []float32, k int) []Chunk {
	type scored struct {
		dist  float64
		chunk Chunk
	}

	scores := make([]scored, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		if len(c.Vector) != len(query) {
			continue
		}
		scores = append(scores, scored{dist: sqL2(query, c.Vector), chunk: c})
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	if k > len(scores) {
		k = len(scores)
	}
	out := make([]Chunk, 0, k)
	for _, s := range scores[:k] {
		out = append(out, s.chunk)
	}
	return out
}

func sqL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// chunkRow matches the parquet snapshot schema.
type chunkRow struct {
	Source  string    `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Content string    `parquet:"name=content, type=BYTE_ARRAY, convertedtype=UTF8"`
	Vector  []float32 `parquet:"name=vector, type=LIST, valuetype=FLOAT"`
}

// WriteSnapshotFile writes the index as a parquet file at path.
func (ix *Index) WriteSnapshotFile(path string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(chunkRow), 1)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = 0 // no snappy

	for _, c := range ix.chunks {
		row := chunkRow{Source: c.Source, Content: c.Content, Vector: c.Vector}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet write stop: %w", err)
	}
	return fw.Close()
}

// ReadSnapshotFile loads an index from a parquet file at path.
func ReadSnapshotFile(path string) (*Index, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("parquet file reader: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(chunkRow), 1)
	if err != nil {
		return nil, fmt.Errorf("parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]chunkRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("parquet read rows: %w", err)
	}

	ix := NewIndex()
	for _, r := range rows {
		ix.Add(Chunk{Source: r.Source, Content: r.Content, Vector: r.Vector})
	}
	return ix, nil
}

// SaveSnapshot writes the index to a tmp parquet file and uploads it.
func (ix *Index) SaveSnapshot(ctx context.Context, store *storage.Store, bucket, key string) error {
	path := filepath.Join(os.TempDir(), "rag_index_"+randHex(8)+".parquet")
	defer func() { _ = os.Remove(path) }()

	if err := ix.WriteSnapshotFile(path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read parquet tmp: %w", err)
	}
	return store.Put(ctx, bucket, key, data, "application/octet-stream")
}

// LoadSnapshot downloads a snapshot and loads it.
func LoadSnapshot(ctx context.Context, store *storage.Store, bucket, key string) (*Index, error) {
	data, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(os.TempDir(), "rag_index_"+randHex(8)+".parquet")
	defer func() { _ = os.Remove(path) }()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write parquet tmp: %w", err)
	}
	return ReadSnapshotFile(path)
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
