package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParserManagerTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("hello parser"), 0o644); err != nil {
		t.Fatal(err)
	}

	pm := NewParserManager()
	doc, err := pm.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if doc.Content != "hello parser" {
		t.Errorf("Content = %q, want %q", doc.Content, "hello parser")
	}
	if doc.Metadata["file_type"] != "text" {
		t.Errorf("file_type = %q, want text", doc.Metadata["file_type"])
	}
}

func TestParserManagerUnknownType(t *testing.T) {
	pm := NewParserManager()
	if _, err := pm.Parse("document.docx"); err == nil {
		t.Error("expected error for unknown file type")
	}
}

func TestParserManagerParseBytes(t *testing.T) {
	pm := NewParserManager()
	doc, err := pm.ParseBytes([]byte("from bytes"), ".txt")
	if err != nil {
		t.Fatalf("ParseBytes() error: %v", err)
	}
	if doc.Content != "from bytes" {
		t.Errorf("Content = %q, want %q", doc.Content, "from bytes")
	}
}

func TestParserManagerAddParser(t *testing.T) {
	pm := NewParserManager()
	pm.AddParser("pdf", NewTextParser())

	doc, err := pm.ParseBytes([]byte("plain text stored as pdf"), ".pdf")
	if err != nil {
		t.Fatalf("ParseBytes() error: %v", err)
	}
	if doc.Content != "plain text stored as pdf" {
		t.Errorf("Content = %q", doc.Content)
	}
}

func TestParserManagerCustomDetector(t *testing.T) {
	pm := NewParserManager()
	pm.SetFileTypeDetector(func(path string) string {
		if strings.HasSuffix(path, ".log") {
			return "text"
		}
		return "unknown"
	})

	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("log line"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := pm.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if doc.Content != "log line" {
		t.Errorf("Content = %q", doc.Content)
	}
}

func TestPDFParserRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewPDFParser().Parse(path); err == nil {
		t.Error("expected error for invalid PDF data")
	}
}
