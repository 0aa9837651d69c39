package rag

import (
	"testing"
	"time"
)

func TestCorpusRoundtrip(t *testing.T) {
	corpus := NewCorpus(t.TempDir())

	papers := []Paper{
		{
			ID:        "2501.01234v1",
			Title:     "A Paper",
			Abstract:  "Its abstract.",
			Authors:   []string{"Ada Lovelace"},
			Published: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
			PDFURL:    "http://arxiv.org/pdf/2501.01234v1",
		},
		{ID: "2501.05678v1", Title: "Another Paper", Abstract: "Another abstract."},
	}

	if err := corpus.Save(papers); err != nil {
		t.Fatal(err)
	}

	loaded, err := corpus.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(loaded))
	}
	if loaded[0].ID != papers[0].ID || loaded[0].Abstract != papers[0].Abstract {
		t.Errorf("loaded paper mismatch: %+v", loaded[0])
	}
	if !loaded[0].Published.Equal(papers[0].Published) {
		t.Errorf("published time mismatch: %v", loaded[0].Published)
	}
}

func TestCorpusLoadMissing(t *testing.T) {
	corpus := NewCorpus(t.TempDir())
	if _, err := corpus.Load(); err == nil {
		t.Fatal("expected error loading empty corpus")
	}
}

func TestCorpusPDFs(t *testing.T) {
	corpus := NewCorpus(t.TempDir())
	body := []byte("%PDF-1.4 test")

	if corpus.HasPDF("2501.01234v1") {
		t.Fatal("HasPDF should be false before PutPDF")
	}

	if err := corpus.PutPDF("2501.01234v1", body); err != nil {
		t.Fatal(err)
	}
	if !corpus.HasPDF("2501.01234v1") {
		t.Fatal("HasPDF should be true after PutPDF")
	}

	got, err := corpus.GetPDF("2501.01234v1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Errorf("PDF body mismatch")
	}

	if _, err := corpus.GetPDF("missing"); err == nil {
		t.Fatal("expected error for missing PDF")
	}
}

func TestCorpusReset(t *testing.T) {
	corpus := NewCorpus(t.TempDir())
	if err := corpus.Save([]Paper{{ID: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := corpus.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := corpus.Load(); err == nil {
		t.Fatal("expected error after reset")
	}
}
