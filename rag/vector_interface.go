package rag

import (
	"context"
	"fmt"
	"time"
)

// VectorDB is the storage abstraction every experiment runs against. Search
// returns results ranked most similar first, regardless of the metric in use.
type VectorDB interface {
	Connect(ctx context.Context) error
	Close() error
	HasCollection(ctx context.Context, name string) (bool, error)
	DropCollection(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, name string, schema Schema) error
	Insert(ctx context.Context, collectionName string, data []Record) error
	Flush(ctx context.Context, collectionName string) error
	CreateIndex(ctx context.Context, collectionName, field string, index Index) error
	LoadCollection(ctx context.Context, name string) error
	Search(ctx context.Context, collectionName string, vectors map[string]Vector, topK int, metricType string, searchParams map[string]interface{}) ([]SearchResult, error)
	SetColumnNames(names []string)
}

// Schema defines the structure of records in a collection.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// Field is one column of a collection schema.
type Field struct {
	Name       string
	DataType   string
	PrimaryKey bool
	AutoID     bool
	Dimension  int
	MaxLength  int
}

// Record is a row of field values keyed by field name.
type Record struct {
	Fields map[string]interface{}
}

// Vector is a dense embedding.
type Vector []float64

// Index describes a vector index to build on a collection field.
type Index struct {
	Type       string
	Metric     string
	Parameters map[string]interface{}
}

// SearchResult is one ranked hit. Score semantics follow the metric:
// similarity for COSINE and IP, distance for L2. Results are always ordered
// best first.
type SearchResult struct {
	ID     int64
	Score  float64
	Fields map[string]interface{}
}

// Config selects and parameterizes a VectorDB backend.
type Config struct {
	Type       string
	Address    string
	Timeout    time.Duration
	Parameters map[string]interface{}
}

// NewVectorDB constructs the configured backend.
func NewVectorDB(cfg *Config) (VectorDB, error) {
	switch cfg.Type {
	case "milvus":
		return newMilvusDB(cfg)
	case "memory":
		return newMemoryDB(cfg)
	case "chromem":
		return newChromemDB(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// chunkSchema is the collection layout shared by all backends: one row per
// chunk with its embedding, source paper and position.
func chunkSchema(name string, dimension int) Schema {
	return Schema{
		Name:        name,
		Description: "chunks produced by one chunking strategy configuration",
		Fields: []Field{
			{Name: "ID", DataType: "int64", PrimaryKey: true},
			{Name: "Embedding", DataType: "float_vector", Dimension: dimension},
			{Name: "Text", DataType: "varchar", MaxLength: 65535},
			{Name: "PaperID", DataType: "varchar", MaxLength: 512},
			{Name: "ChunkIndex", DataType: "int64"},
		},
	}
}

// ChunkSchema exposes the shared collection layout to callers that create
// collections themselves.
func ChunkSchema(name string, dimension int) Schema {
	return chunkSchema(name, dimension)
}
