package rag

import (
	"context"
	"testing"
)

func newTestMemoryDB(t *testing.T) *MemoryDB {
	t.Helper()
	db, err := newMemoryDB(&Config{Type: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	return db
}

func insertTestVectors(t *testing.T, db *MemoryDB, collection string, vectors map[string]Vector) {
	t.Helper()
	ctx := context.Background()

	if err := db.CreateCollection(ctx, collection, chunkSchema(collection, 3)); err != nil {
		t.Fatal(err)
	}

	var records []Record
	var id int64
	for paperID, vec := range vectors {
		records = append(records, Record{Fields: map[string]interface{}{
			"ID":         id,
			"Embedding":  vec,
			"Text":       "chunk of " + paperID,
			"PaperID":    paperID,
			"ChunkIndex": int64(0),
		}})
		id++
	}
	if err := db.Insert(ctx, collection, records); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryDBCosineRanking(t *testing.T) {
	db := newTestMemoryDB(t)
	db.SetColumnNames([]string{"Text", "PaperID"})

	insertTestVectors(t, db, "chunks", map[string]Vector{
		"exact":      {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
	})

	results, err := db.Search(context.Background(), "chunks",
		map[string]Vector{"Embedding": {1, 0, 0}}, 2, "COSINE", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := results[0].Fields["PaperID"]; got != "exact" {
		t.Errorf("top result = %v, want exact", got)
	}
	if got := results[1].Fields["PaperID"]; got != "close" {
		t.Errorf("second result = %v, want close", got)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("cosine results not ranked descending: %f < %f", results[0].Score, results[1].Score)
	}
}

func TestMemoryDBL2Ranking(t *testing.T) {
	db := newTestMemoryDB(t)
	db.SetColumnNames([]string{"PaperID"})

	insertTestVectors(t, db, "chunks", map[string]Vector{
		"near": {1, 0, 0},
		"far":  {5, 5, 5},
	})

	results, err := db.Search(context.Background(), "chunks",
		map[string]Vector{"Embedding": {1, 0, 0}}, 2, "L2", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := results[0].Fields["PaperID"]; got != "near" {
		t.Errorf("top result = %v, want near", got)
	}
	if results[0].Score > results[1].Score {
		t.Errorf("L2 results not ranked ascending: %f > %f", results[0].Score, results[1].Score)
	}
}

func TestMemoryDBSearchMissingCollection(t *testing.T) {
	db := newTestMemoryDB(t)
	_, err := db.Search(context.Background(), "missing",
		map[string]Vector{"Embedding": {1}}, 1, "COSINE", nil)
	if err == nil {
		t.Fatal("expected error for missing collection")
	}
}

func TestMemoryDBCollectionLifecycle(t *testing.T) {
	db := newTestMemoryDB(t)
	ctx := context.Background()

	exists, err := db.HasCollection(ctx, "chunks")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("collection should not exist yet")
	}

	if err := db.CreateCollection(ctx, "chunks", chunkSchema("chunks", 3)); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateCollection(ctx, "chunks", chunkSchema("chunks", 3)); err == nil {
		t.Fatal("expected error creating duplicate collection")
	}

	exists, _ = db.HasCollection(ctx, "chunks")
	if !exists {
		t.Fatal("collection should exist after create")
	}

	if err := db.DropCollection(ctx, "chunks"); err != nil {
		t.Fatal(err)
	}
	exists, _ = db.HasCollection(ctx, "chunks")
	if exists {
		t.Fatal("collection should not exist after drop")
	}
}

func TestMemoryDBDimensionMismatch(t *testing.T) {
	db := newTestMemoryDB(t)
	db.SetColumnNames([]string{"PaperID"})

	insertTestVectors(t, db, "chunks", map[string]Vector{
		"matching": {1, 0, 0},
		"stunted":  {1, 0},
	})

	for _, metric := range []string{"COSINE", "IP", "L2"} {
		results, err := db.Search(context.Background(), "chunks",
			map[string]Vector{"Embedding": {1, 0, 0}}, 2, metric, nil)
		if err != nil {
			t.Fatalf("%s: %v", metric, err)
		}
		if len(results) != 2 {
			t.Fatalf("%s: expected 2 results, got %d", metric, len(results))
		}
		// The mismatched vector scores worst instead of panicking.
		if got := results[0].Fields["PaperID"]; got != "matching" {
			t.Errorf("%s: top result = %v, want matching", metric, got)
		}
	}
}

func TestMemoryDBTopKLimit(t *testing.T) {
	db := newTestMemoryDB(t)
	db.SetColumnNames([]string{"PaperID"})

	insertTestVectors(t, db, "chunks", map[string]Vector{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {0, 0, 1},
	})

	results, err := db.Search(context.Background(), "chunks",
		map[string]Vector{"Embedding": {1, 0, 0}}, 1, "COSINE", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected topK=1 result, got %d", len(results))
	}
}
