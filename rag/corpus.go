package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Corpus persists paper metadata and PDFs on the local filesystem so that
// experiment runs can skip ingestion. Layout:
//
//	<dir>/papers.json
//	<dir>/pdf/<paper-id>.pdf
type Corpus struct {
	dir string
}

func NewCorpus(dir string) *Corpus {
	return &Corpus{dir: dir}
}

func (c *Corpus) papersPath() string {
	return filepath.Join(c.dir, "papers.json")
}

func (c *Corpus) pdfPath(paperID string) string {
	return filepath.Join(c.dir, "pdf", paperID+".pdf")
}

// Save writes the paper metadata, replacing any previous set.
func (c *Corpus) Save(papers []Paper) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}

	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal papers: %w", err)
	}

	if err := os.WriteFile(c.papersPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write papers: %w", err)
	}
	return nil
}

// Load reads the stored paper metadata.
func (c *Corpus) Load() ([]Paper, error) {
	data, err := os.ReadFile(c.papersPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read papers (run ingestion first?): %w", err)
	}

	var papers []Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal papers: %w", err)
	}
	return papers, nil
}

// PutPDF stores the PDF body for a paper.
func (c *Corpus) PutPDF(paperID string, data []byte) error {
	if err := os.MkdirAll(filepath.Join(c.dir, "pdf"), 0o755); err != nil {
		return fmt.Errorf("failed to create pdf directory: %w", err)
	}
	if err := os.WriteFile(c.pdfPath(paperID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write pdf for %s: %w", paperID, err)
	}
	return nil
}

// GetPDF reads the stored PDF body for a paper.
func (c *Corpus) GetPDF(paperID string) ([]byte, error) {
	data, err := os.ReadFile(c.pdfPath(paperID))
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf for %s: %w", paperID, err)
	}
	return data, nil
}

// HasPDF reports whether a PDF is stored for the paper.
func (c *Corpus) HasPDF(paperID string) bool {
	_, err := os.Stat(c.pdfPath(paperID))
	return err == nil
}

// Reset removes all stored metadata and PDFs.
func (c *Corpus) Reset() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to reset corpus: %w", err)
	}
	return nil
}
