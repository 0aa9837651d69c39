package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemDB backs collections with chromem-go, optionally persisted to disk.
// Embeddings are always supplied precomputed, so the collection embedding
// function is a stub that is never invoked.
type ChromemDB struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
	columnNames []string
}

// noEmbedding satisfies chromem's embedding function requirement. Documents
// and queries always carry their own vectors.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be precomputed")
}

func newChromemDB(cfg *Config) (*ChromemDB, error) {
	var db *chromem.DB
	var err error
	if cfg.Address != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Address), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create chromem directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(cfg.Address, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemDB{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// Connect is a no-op, chromem is embedded.
func (c *ChromemDB) Connect(ctx context.Context) error {
	return nil
}

// Close is a no-op, persistence happens on write.
func (c *ChromemDB) Close() error {
	return nil
}

func (c *ChromemDB) HasCollection(ctx context.Context, name string) (bool, error) {
	c.mu.RLock()
	if _, exists := c.collections[name]; exists {
		c.mu.RUnlock()
		return true, nil
	}
	c.mu.RUnlock()

	col := c.db.GetCollection(name, noEmbedding)
	if col == nil {
		return false, nil
	}

	c.mu.Lock()
	c.collections[name] = col
	c.mu.Unlock()
	return true, nil
}

func (c *ChromemDB) DropCollection(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.collections, name)
	return c.db.DeleteCollection(name)
}

func (c *ChromemDB) CreateCollection(ctx context.Context, name string, schema Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.collections[name]; exists {
		return nil
	}

	col, err := c.db.CreateCollection(name, map[string]string{}, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	c.collections[name] = col
	return nil
}

func (c *ChromemDB) Insert(ctx context.Context, collectionName string, data []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, exists := c.collections[collectionName]
	if !exists {
		return fmt.Errorf("collection %s does not exist", collectionName)
	}

	docs := make([]chromem.Document, 0, len(data))
	for i, record := range data {
		content, ok := record.Fields["Text"].(string)
		if !ok {
			continue
		}

		var embedding []float32
		switch e := record.Fields["Embedding"].(type) {
		case []float32:
			embedding = e
		case Vector:
			embedding = toFloat32Slice(e)
		case []float64:
			embedding = toFloat32Slice(e)
		default:
			continue
		}

		id := int64(i)
		if v, ok := record.Fields["ID"].(int64); ok {
			id = v
		}

		metadata := make(map[string]string)
		if paperID, ok := record.Fields["PaperID"].(string); ok {
			metadata["PaperID"] = paperID
		}
		if chunkIndex, ok := record.Fields["ChunkIndex"].(int64); ok {
			metadata["ChunkIndex"] = strconv.FormatInt(chunkIndex, 10)
		}

		docs = append(docs, chromem.Document{
			ID:        strconv.FormatInt(id, 10),
			Content:   content,
			Metadata:  metadata,
			Embedding: embedding,
		})
	}

	if len(docs) == 0 {
		return nil
	}

	GlobalLogger.Debug("Inserting documents into chromem", "collection", collectionName, "count", len(docs))
	if err := col.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// Flush is a no-op, chromem persists on write.
func (c *ChromemDB) Flush(ctx context.Context, collectionName string) error {
	return nil
}

// CreateIndex is a no-op, chromem searches exhaustively.
func (c *ChromemDB) CreateIndex(ctx context.Context, collectionName, field string, index Index) error {
	return nil
}

func (c *ChromemDB) LoadCollection(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	col := c.db.GetCollection(name, noEmbedding)
	if col == nil {
		return fmt.Errorf("collection %s not found", name)
	}
	c.collections[name] = col
	return nil
}

// Search queries by embedding. Chromem ranks by cosine similarity, the
// metricType argument is ignored and Score is always a similarity.
func (c *ChromemDB) Search(ctx context.Context, collectionName string, vectors map[string]Vector, topK int, metricType string, searchParams map[string]interface{}) ([]SearchResult, error) {
	c.mu.RLock()
	col, exists := c.collections[collectionName]
	c.mu.RUnlock()

	if !exists {
		if err := c.LoadCollection(ctx, collectionName); err != nil {
			return nil, fmt.Errorf("failed to load collection: %w", err)
		}
		c.mu.RLock()
		col = c.collections[collectionName]
		c.mu.RUnlock()
	}

	if len(vectors) != 1 {
		return nil, fmt.Errorf("chromem only supports single vector search")
	}

	var queryVector Vector
	for _, v := range vectors {
		queryVector = v
		break
	}

	// Chromem errors when topK exceeds the collection size.
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return []SearchResult{}, nil
	}

	results, err := col.QueryEmbedding(ctx, toFloat32Slice(queryVector), topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, result := range results {
		fields := make(map[string]interface{})
		fields["Text"] = result.Content
		if paperID, ok := result.Metadata["PaperID"]; ok {
			fields["PaperID"] = paperID
		}
		if chunkIndex, ok := result.Metadata["ChunkIndex"]; ok {
			if v, err := strconv.ParseInt(chunkIndex, 10, 64); err == nil {
				fields["ChunkIndex"] = v
			}
		}

		id, _ := strconv.ParseInt(result.ID, 10, 64)
		searchResults[i] = SearchResult{
			ID:     id,
			Score:  float64(result.Similarity),
			Fields: fields,
		}
	}

	return searchResults, nil
}

func (c *ChromemDB) SetColumnNames(names []string) {
	c.columnNames = names
}

func toFloat32Slice(v []float64) []float32 {
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(val)
	}
	return result
}
