package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adhyaay-karnwal/athas/hardware"
)

const (
	pdfDataSummary  = "PDF parsing would extract register maps, timing constraints, and other hardware data using PDF extraction libraries."
	textDataSummary = "Text file analysis would extract hardware data based on content structure."
)

// DefaultMaxFileBytes bounds how much of a document the extractors read.
const DefaultMaxFileBytes = 4 << 20

// LocalExtractor answers from the file itself without any external service.
// JSON documents that already hold extracted data are returned as-is and
// markdown frontmatter supplies metadata; everything else gets placeholder
// values keyed by extension.
type LocalExtractor struct {
	MaxFileBytes int64
}

// NewLocalExtractor returns an extractor with default limits.
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{MaxFileBytes: DefaultMaxFileBytes}
}

// ExtractMetadata implements Extractor.
func (l *LocalExtractor) ExtractMetadata(ctx context.Context, filePath, fileType string) (hardware.DocumentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return hardware.DocumentMetadata{}, err
	}
	if err := requireFile(filePath); err != nil {
		return hardware.DocumentMetadata{}, err
	}
	switch extensionOf(filePath) {
	case "pdf":
		return hardware.DocumentMetadata{
			Title:       "PDF Document",
			Description: "Hardware documentation PDF",
			Tags:        []string{},
		}, nil
	case "txt", "csv", "json", "xml":
		return hardware.DocumentMetadata{
			Title:       "Text Document",
			Description: "Hardware documentation text file",
			Tags:        []string{},
		}, nil
	case "md", "markdown":
		content, err := l.read(filePath)
		if err != nil {
			return hardware.DocumentMetadata{}, err
		}
		if md, ok := parseFrontmatter(content); ok {
			return md, nil
		}
	}
	return hardware.DocumentMetadata{
		Description: "File: " + filepath.Base(filePath),
		Tags:        []string{},
	}, nil
}

// ExtractHardwareData implements Extractor.
func (l *LocalExtractor) ExtractHardwareData(ctx context.Context, filePath, fileType string) (hardware.ExtractedData, error) {
	if err := ctx.Err(); err != nil {
		return hardware.ExtractedData{}, err
	}
	if err := requireFile(filePath); err != nil {
		return hardware.ExtractedData{}, err
	}
	switch extensionOf(filePath) {
	case "pdf":
		return hardware.ExtractedData{Summary: pdfDataSummary}, nil
	case "json":
		content, err := l.read(filePath)
		if err != nil {
			return hardware.ExtractedData{}, err
		}
		var data hardware.ExtractedData
		if err := json.Unmarshal(content, &data); err == nil && !data.IsEmpty() {
			return data, nil
		}
		return hardware.ExtractedData{Summary: textDataSummary}, nil
	case "txt", "csv", "xml":
		return hardware.ExtractedData{Summary: textDataSummary}, nil
	}
	return hardware.ExtractedData{}, nil
}

func (l *LocalExtractor) read(filePath string) ([]byte, error) {
	return readBounded(filePath, l.MaxFileBytes)
}

func requireFile(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file not found: %s: %w", filePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("not a file: %s", filePath)
	}
	return nil
}

func readBounded(filePath string, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxFileBytes
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, max))
}

func extensionOf(filePath string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
}

// parseFrontmatter reads a leading "---" YAML block.
func parseFrontmatter(content []byte) (hardware.DocumentMetadata, bool) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return hardware.DocumentMetadata{}, false
	}
	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return hardware.DocumentMetadata{}, false
	}
	var md hardware.DocumentMetadata
	if err := yaml.Unmarshal(rest[:end], &md); err != nil {
		return hardware.DocumentMetadata{}, false
	}
	if md.Tags == nil {
		md.Tags = []string{}
	}
	return md, true
}
