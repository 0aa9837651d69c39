package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryDB is an in-memory VectorDB using linear scan search. It is the
// default backend for experiment runs: a benchmark corpus of a few hundred
// papers fits comfortably in memory and needs no external service.
type MemoryDB struct {
	collections map[string]*memoryCollection
	mu          sync.RWMutex
	columnNames []string
}

type memoryCollection struct {
	schema Schema
	data   []Record
}

func newMemoryDB(cfg *Config) (*MemoryDB, error) {
	return &MemoryDB{
		collections: make(map[string]*memoryCollection),
	}, nil
}

// Connect is a no-op for the in-memory backend.
func (m *MemoryDB) Connect(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryDB) Close() error {
	return nil
}

func (m *MemoryDB) HasCollection(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.collections[name]
	return exists, nil
}

func (m *MemoryDB) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *MemoryDB) CreateCollection(ctx context.Context, name string, schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.collections[name]; exists {
		return fmt.Errorf("collection %s already exists", name)
	}
	m.collections[name] = &memoryCollection{schema: schema}
	return nil
}

func (m *MemoryDB) Insert(ctx context.Context, collectionName string, data []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	collection, exists := m.collections[collectionName]
	if !exists {
		return fmt.Errorf("collection %s does not exist", collectionName)
	}
	collection.data = append(collection.data, data...)
	return nil
}

// Flush is a no-op, inserts are immediately visible.
func (m *MemoryDB) Flush(ctx context.Context, collectionName string) error {
	return nil
}

// CreateIndex is a no-op, search is a linear scan.
func (m *MemoryDB) CreateIndex(ctx context.Context, collectionName, field string, index Index) error {
	return nil
}

// LoadCollection is a no-op, all data is always resident.
func (m *MemoryDB) LoadCollection(ctx context.Context, name string) error {
	return nil
}

// Search scans the collection, scores every record against the query vector
// and returns the topK best. COSINE and IP rank by descending score, L2 by
// ascending distance.
func (m *MemoryDB) Search(ctx context.Context, collectionName string, vectors map[string]Vector, topK int, metricType string, searchParams map[string]interface{}) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	collection, exists := m.collections[collectionName]
	if !exists {
		return nil, fmt.Errorf("collection %s does not exist", collectionName)
	}

	var results []SearchResult
	for _, record := range collection.data {
		for fieldName, queryVector := range vectors {
			v, ok := record.Fields[fieldName].(Vector)
			if !ok {
				continue
			}
			score := m.score(queryVector, v, metricType)
			fields := make(map[string]interface{})
			for _, name := range m.columnNames {
				if value, exists := record.Fields[name]; exists {
					fields[name] = value
				}
			}
			id, _ := record.Fields["ID"].(int64)
			results = append(results, SearchResult{
				ID:     id,
				Score:  score,
				Fields: fields,
			})
			break
		}
	}

	ascending := metricType == "L2"
	sort.SliceStable(results, func(i, j int) bool {
		if ascending {
			return results[i].Score < results[j].Score
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// score computes the metric between query and stored vector. Mismatched
// dimensions get the worst possible score for the metric instead of
// panicking.
func (m *MemoryDB) score(a, b Vector, metricType string) float64 {
	switch metricType {
	case "IP":
		if len(a) != len(b) {
			return 0
		}
		var sum float64
		for i := range a {
			sum += a[i] * b[i]
		}
		return sum
	case "COSINE":
		return CosineSimilarity(a, b)
	default: // L2
		if len(a) != len(b) {
			return math.Inf(1)
		}
		var sum float64
		for i := range a {
			diff := a[i] - b[i]
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

// SetColumnNames configures which fields appear in search results.
func (m *MemoryDB) SetColumnNames(names []string) {
	m.columnNames = names
}
