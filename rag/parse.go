package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is a parsed source document: extracted text plus metadata about
// where it came from.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Parser extracts text from a file on disk.
type Parser interface {
	Parse(filePath string) (Document, error)
}

// ParserManager routes files to the parser registered for their type.
type ParserManager struct {
	fileTypeDetector func(string) string
	parsers          map[string]Parser
}

// NewParserManager creates a manager with PDF and plain-text parsers
// registered.
func NewParserManager() *ParserManager {
	pm := &ParserManager{
		fileTypeDetector: defaultFileTypeDetector,
		parsers:          make(map[string]Parser),
	}
	pm.parsers["pdf"] = NewPDFParser()
	pm.parsers["text"] = NewTextParser()
	return pm
}

// Parse picks a parser by detected file type and delegates to it.
func (pm *ParserManager) Parse(filePath string) (Document, error) {
	fileType := pm.fileTypeDetector(filePath)
	parser, ok := pm.parsers[fileType]
	if !ok {
		return Document{}, fmt.Errorf("no parser available for file type: %s", fileType)
	}
	doc, err := parser.Parse(filePath)
	if err != nil {
		GlobalLogger.Error("failed to parse document", "path", filePath, "error", err)
		return Document{}, err
	}
	GlobalLogger.Debug("parsed document", "path", filePath, "type", fileType)
	return doc, nil
}

// ParseBytes writes the given bytes to a temporary file with the given
// extension and parses it. Used for PDFs fetched from the corpus store.
func (pm *ParserManager) ParseBytes(data []byte, ext string) (Document, error) {
	tmp, err := os.CreateTemp("", "chunkbench-*"+ext)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Document{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Document{}, err
	}

	return pm.Parse(tmp.Name())
}

func defaultFileTypeDetector(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "pdf"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}

// SetFileTypeDetector replaces the extension-based type detection.
func (pm *ParserManager) SetFileTypeDetector(detector func(string) string) {
	pm.fileTypeDetector = detector
}

// AddParser registers a parser for an additional file type.
func (pm *ParserManager) AddParser(fileType string, parser Parser) {
	pm.parsers[fileType] = parser
}

// PDFParser extracts text from PDF files with the ledongthuc/pdf library.
type PDFParser struct{}

// NewPDFParser creates a PDFParser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts the plain text of every page.
func (p *PDFParser) Parse(filePath string) (Document, error) {
	content, err := p.extractText(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to extract text: %w", err)
	}
	return Document{
		Content: content,
		Metadata: map[string]string{
			"file_type": "pdf",
			"file_path": filePath,
		},
	}, nil
}

func (p *PDFParser) extractText(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}

	reader, err := pdf.NewReader(file, fileInfo.Size())
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		textBuilder.WriteString(content)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

// TextParser reads plain text files as-is.
type TextParser struct{}

// NewTextParser creates a TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Parse(filePath string) (Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	return Document{
		Content: string(content),
		Metadata: map[string]string{
			"file_type": "text",
			"file_path": filePath,
		},
	}, nil
}
