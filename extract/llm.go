package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/llm"
)

// maxPromptChars limits document content sent to the model.
const maxPromptChars = 12000

var errBinaryDocument = errors.New("document has no text layer")

// LLMExtractor asks a language model to read the document text and answer
// with strict JSON.
type LLMExtractor struct {
	Model        llm.Model
	Options      llm.Options
	Logger       *zap.Logger
	MaxFileBytes int64
}

// NewLLMExtractor builds an extractor over model.
func NewLLMExtractor(model llm.Model, logger *zap.Logger) *LLMExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMExtractor{
		Model:        model,
		Options:      llm.Options{Temperature: 0.1, Format: "json"},
		Logger:       logger,
		MaxFileBytes: DefaultMaxFileBytes,
	}
}

// ExtractMetadata implements Extractor.
func (e *LLMExtractor) ExtractMetadata(ctx context.Context, filePath, fileType string) (hardware.DocumentMetadata, error) {
	text, err := e.documentText(filePath)
	if err != nil {
		return hardware.DocumentMetadata{}, err
	}
	raw, err := e.ask(ctx, metadataSystemPrompt, fmt.Sprintf(metadataUserPrompt, fileType, text))
	if err != nil {
		return hardware.DocumentMetadata{}, err
	}
	var md hardware.DocumentMetadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return hardware.DocumentMetadata{}, fmt.Errorf("invalid metadata JSON: %w", err)
	}
	if md.Tags == nil {
		md.Tags = []string{}
	}
	return md, nil
}

// ExtractHardwareData implements Extractor.
func (e *LLMExtractor) ExtractHardwareData(ctx context.Context, filePath, fileType string) (hardware.ExtractedData, error) {
	text, err := e.documentText(filePath)
	if err != nil {
		return hardware.ExtractedData{}, err
	}
	raw, err := e.ask(ctx, dataSystemPrompt, fmt.Sprintf(dataUserPrompt, fileType, text))
	if err != nil {
		return hardware.ExtractedData{}, err
	}
	var data hardware.ExtractedData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return hardware.ExtractedData{}, fmt.Errorf("invalid extracted data JSON: %w", err)
	}
	return data, nil
}

func (e *LLMExtractor) documentText(filePath string) (string, error) {
	if err := requireFile(filePath); err != nil {
		return "", err
	}
	content, err := readBounded(filePath, e.MaxFileBytes)
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return "", fmt.Errorf("%s: %w", filePath, errBinaryDocument)
	}
	return truncateForPrompt(string(content), maxPromptChars), nil
}

func (e *LLMExtractor) ask(ctx context.Context, system, user string) (string, error) {
	if e.Model == nil {
		return "", errors.New("no language model configured")
	}
	opts := e.Options
	resp, err := e.Model.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, &opts)
	if err != nil {
		return "", fmt.Errorf("LLM extraction failed: %w", err)
	}
	raw := extractJSON(resp.Text)
	if raw == "" {
		return "", errors.New("no JSON found in response")
	}
	return raw, nil
}

// truncateForPrompt cuts at a paragraph break near the limit when possible.
func truncateForPrompt(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	truncated := content[:maxChars]
	for !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	if lastPara := strings.LastIndex(truncated, "\n\n"); lastPara > maxChars/2 {
		truncated = truncated[:lastPara]
	}
	return truncated + "\n\n[Content truncated]"
}

var codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

// extractJSON pulls a JSON object out of a reply that may wrap it in a
// markdown code fence or surrounding prose.
func extractJSON(content string) string {
	if matches := codeBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}
	decoder := json.NewDecoder(strings.NewReader(content[start:]))
	var raw json.RawMessage
	if err := decoder.Decode(&raw); err == nil {
		return string(raw)
	}
	return ""
}

const metadataSystemPrompt = `You read hardware engineering documents (datasheets, reference manuals, schematics, internal notes) and describe them.
Answer with a single JSON object and nothing else, using these optional keys:
"title", "author", "version", "revision", "pages" (integer), "manufacturer", "partNumber", "description", and "tags" (array of short lowercase strings).
Omit keys you cannot determine from the text.`

const metadataUserPrompt = `Document type: %s

Document text:
%s`

const dataSystemPrompt = `You extract structured hardware facts from engineering documents.
Answer with a single JSON object and nothing else, using these optional keys:
"registerMaps": [{"name","address","description","bitWidth","access","resetValue","fields":[{"name","bitRange":[high,low],"description","enumValues":[{"value","description"}]}]}],
"timingConstraints": [{"name","parameter","min","typ","max","unit","condition"}],
"pinouts": [{"pinNumber","name","type","description","function"}],
"electricalSpecs": [{"parameter","min","typ","max","unit","condition"}],
"configurations": [{"name","description","settings":{}}],
"summary": "one paragraph".
access is one of read, write, read-write, read-only, write-only. Pin type is one of input, output, bidirectional, power, ground.
Numbers are plain JSON numbers. Only report values stated in the text.`

const dataUserPrompt = `Document type: %s

Document text:
%s`
