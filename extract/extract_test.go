package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/llm"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocalExtractorMetadataByExtension(t *testing.T) {
	dir := t.TempDir()
	ex := NewLocalExtractor()
	ctx := context.Background()

	md, err := ex.ExtractMetadata(ctx, writeFile(t, dir, "stm32.PDF", "%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "PDF Document", md.Title)
	assert.Equal(t, "Hardware documentation PDF", md.Description)
	assert.NotNil(t, md.Tags)

	md, err = ex.ExtractMetadata(ctx, writeFile(t, dir, "pins.csv", "1,VDD"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "Text Document", md.Title)

	md, err = ex.ExtractMetadata(ctx, writeFile(t, dir, "board.kicad_pcb", "(kicad_pcb)"), "")
	require.NoError(t, err)
	assert.Empty(t, md.Title)
	assert.Equal(t, "File: board.kicad_pcb", md.Description)
}

func TestLocalExtractorMissingFile(t *testing.T) {
	ex := NewLocalExtractor()
	_, err := ex.ExtractMetadata(context.Background(), "/nonexistent/file.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ex.ExtractHardwareData(context.Background(), "/nonexistent/file.pdf", "")
	assert.Error(t, err)
}

func TestLocalExtractorMarkdownFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "uart-notes.md", "---\ntitle: UART bring-up\nmanufacturer: ST\npart_number: STM32F407\ntags: [uart, bringup]\n---\n# Notes\n")
	md, err := NewLocalExtractor().ExtractMetadata(context.Background(), path, "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "UART bring-up", md.Title)
	assert.Equal(t, "ST", md.Manufacturer)
	assert.Equal(t, "STM32F407", md.PartNumber)
	assert.Equal(t, []string{"uart", "bringup"}, md.Tags)

	plain := writeFile(t, dir, "plain.md", "# No frontmatter\n")
	md, err = NewLocalExtractor().ExtractMetadata(context.Background(), plain, "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "File: plain.md", md.Description)
}

func TestLocalExtractorData(t *testing.T) {
	dir := t.TempDir()
	ex := NewLocalExtractor()
	ctx := context.Background()

	data, err := ex.ExtractHardwareData(ctx, writeFile(t, dir, "a.pdf", "%PDF"), "datasheet")
	require.NoError(t, err)
	assert.Equal(t, pdfDataSummary, data.Summary)

	data, err = ex.ExtractHardwareData(ctx, writeFile(t, dir, "a.txt", "hello"), "other")
	require.NoError(t, err)
	assert.Equal(t, textDataSummary, data.Summary)

	data, err = ex.ExtractHardwareData(ctx, writeFile(t, dir, "a.stl", "solid"), "other")
	require.NoError(t, err)
	assert.True(t, data.IsEmpty())

	structured := `{"registerMaps":[{"name":"CR1","address":"0x40013000","description":"Control","bitWidth":16,"access":"read-write"}],"pinouts":[{"pinNumber":"14","name":"PA0","type":"bidirectional"}]}`
	data, err = ex.ExtractHardwareData(ctx, writeFile(t, dir, "spi.json", structured), "other")
	require.NoError(t, err)
	require.Len(t, data.RegisterMaps, 1)
	assert.Equal(t, 16, data.RegisterMaps[0].BitWidth)
	assert.Equal(t, hardware.AccessReadWrite, data.RegisterMaps[0].Access)
	assert.Len(t, data.Pinouts, 1)

	data, err = ex.ExtractHardwareData(ctx, writeFile(t, dir, "other.json", `{"foo":1}`), "other")
	require.NoError(t, err)
	assert.Equal(t, textDataSummary, data.Summary)
}

type failingExtractor struct{ err error }

func (f failingExtractor) ExtractMetadata(context.Context, string, string) (hardware.DocumentMetadata, error) {
	return hardware.DocumentMetadata{}, f.err
}

func (f failingExtractor) ExtractHardwareData(context.Context, string, string) (hardware.ExtractedData, error) {
	return hardware.ExtractedData{}, f.err
}

func TestServiceDegradesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewService(failingExtractor{err: errors.New("backend down")}, zap.New(core))

	md := svc.Metadata(context.Background(), "/x.pdf", "application/pdf")
	assert.Equal(t, hardware.DocumentMetadata{Tags: []string{}}, md)
	data := svc.Data(context.Background(), "/x.pdf", "datasheet")
	assert.True(t, data.IsEmpty())

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "extraction failed", logs.All()[0].Message)
	assert.Equal(t, "/x.pdf", logs.All()[0].ContextMap()["path"])
}

func TestChainFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pdf", "%PDF")
	chain := Chain{failingExtractor{err: errors.New("llm down")}, NewLocalExtractor()}

	md, err := chain.ExtractMetadata(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "PDF Document", md.Title)

	_, err = Chain{failingExtractor{err: errors.New("a")}, failingExtractor{err: errors.New("b")}}.
		ExtractHardwareData(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")

	_, err = Chain{}.ExtractMetadata(context.Background(), path, "")
	assert.Error(t, err)
}

type scriptedModel struct {
	reply    string
	err      error
	messages []llm.Message
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string, options *llm.Options) (*llm.Response, error) {
	return m.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options)
}

func (m *scriptedModel) Chat(ctx context.Context, messages []llm.Message, options *llm.Options) (*llm.Response, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Text: m.reply}, nil
}

func TestLLMExtractorData(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "timing.txt", "tSU setup time min 2.5 ns")
	model := &scriptedModel{reply: "Here you go:\n```json\n{\"timingConstraints\":[{\"name\":\"tSU\",\"parameter\":\"setup\",\"min\":2.5,\"unit\":\"ns\"}],\"summary\":\"SPI timing\"}\n```"}

	data, err := NewLLMExtractor(model, nil).ExtractHardwareData(context.Background(), path, "datasheet")
	require.NoError(t, err)
	require.Len(t, data.TimingConstraints, 1)
	require.NotNil(t, data.TimingConstraints[0].Min)
	assert.Equal(t, 2.5, *data.TimingConstraints[0].Min)
	assert.Nil(t, data.TimingConstraints[0].Max)
	assert.Equal(t, "SPI timing", data.Summary)
	require.Len(t, model.messages, 2)
	assert.Contains(t, model.messages[1].Content, "tSU setup time")
	assert.Contains(t, model.messages[1].Content, "Document type: datasheet")
}

func TestLLMExtractorMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "LM317 adjustable regulator by TI")
	model := &scriptedModel{reply: `Sure. {"title":"LM317","manufacturer":"TI","partNumber":"LM317"} done`}

	md, err := NewLLMExtractor(model, nil).ExtractMetadata(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "TI", md.Manufacturer)
	assert.Equal(t, "LM317", md.PartNumber)
	assert.Equal(t, []string{}, md.Tags)
}

func TestLLMExtractorErrors(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "a.txt", "hello")
	binary := writeFile(t, dir, "a.pdf", "%PDF\x00\x01\x02")

	_, err := NewLLMExtractor(&scriptedModel{reply: "no json here"}, nil).ExtractHardwareData(context.Background(), text, "")
	assert.EqualError(t, err, "no JSON found in response")

	_, err = NewLLMExtractor(&scriptedModel{err: errors.New("timeout")}, nil).ExtractMetadata(context.Background(), text, "")
	assert.ErrorContains(t, err, "timeout")

	_, err = NewLLMExtractor(&scriptedModel{reply: "{}"}, nil).ExtractHardwareData(context.Background(), binary, "")
	assert.ErrorIs(t, err, errBinaryDocument)

	_, err = NewLLMExtractor(nil, nil).ExtractHardwareData(context.Background(), text, "")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":"}"}`, extractJSON(`prefix {"a":"}"} suffix`))
	assert.Equal(t, "", extractJSON("nothing"))
	assert.Equal(t, "", extractJSON("{broken"))
}

func TestTruncateForPrompt(t *testing.T) {
	short := "abc"
	assert.Equal(t, short, truncateForPrompt(short, 10))

	long := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	got := truncateForPrompt(long, 100)
	assert.Equal(t, strings.Repeat("a", 60)+"\n\n[Content truncated]", got)
}
