package hardware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubDocs map[string][]HardwareDocument

func (s stubDocs) ProjectDocuments(projectID string) []HardwareDocument {
	return s[projectID]
}

func TestContextBuilderNoProject(t *testing.T) {
	builder := NewContextBuilder(nil, nil, nil)
	ctx := builder.Build("")
	assert.Equal(t, "No project is currently open.", ctx.Summary)
	assert.Empty(t, ctx.FirmwareFiles)
	assert.Empty(t, ctx.PCBFiles)
	assert.Empty(t, ctx.Schematics)
	assert.Empty(t, ctx.TestResults)
	assert.Empty(t, ctx.DocumentationContext)
}

func TestContextBuilderMergesTreeAndDocuments(t *testing.T) {
	tree := FileTreeFunc(func(root string) ([]FileEntry, error) {
		require.Equal(t, "/p", root)
		return sampleTree(), nil
	})
	docs := stubDocs{"/p": {{
		ID:   "doc-1",
		Name: "stm32.pdf",
		ExtractedData: &ExtractedData{
			RegisterMaps: []RegisterMap{{Name: "CR1", Address: "0x00", BitWidth: 32, Access: AccessReadWrite}},
		},
	}}}

	ctx := NewContextBuilder(tree, docs, zap.NewNop()).Build("/p")
	assert.Len(t, ctx.FirmwareFiles, 4)
	assert.Len(t, ctx.PCBFiles, 2)
	assert.Len(t, ctx.Schematics, 2)
	assert.Len(t, ctx.TestResults, 1)
	assert.Contains(t, ctx.DocumentationContext, "### CR1")
	assert.Equal(t, "Hardware documentation available • 4 firmware files • 2 PCB files • 2 schematics • 1 test results", ctx.Summary)
}

func TestContextBuilderTreeErrorIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tree := FileTreeFunc(func(string) ([]FileEntry, error) {
		return nil, errors.New("permission denied")
	})

	ctx := NewContextBuilder(tree, stubDocs{}, zap.New(core)).Build("/p")
	assert.Equal(t, NoHardwareSummary, ctx.Summary)
	assert.Empty(t, ctx.FirmwareFiles)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "file tree unavailable", logs.All()[0].Message)
}

func TestContextBuilderRender(t *testing.T) {
	tree := FileTreeFunc(func(string) ([]FileEntry, error) {
		return []FileEntry{file("/p/main.c", "main.c")}, nil
	})
	out := NewContextBuilder(tree, nil, nil).Render("/p")
	assert.Equal(t, "## Hardware Project Summary\n\n1 firmware files\n\n### Firmware Files\n- /p/main.c\n", out)
}
