package hardware

import (
	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// FileTree supplies the file-system snapshot of a project root.
type FileTree interface {
	Entries(root string) ([]FileEntry, error)
}

// DocumentSource supplies the documents uploaded for a project, in insertion
// order.
type DocumentSource interface {
	ProjectDocuments(projectID string) []HardwareDocument
}

// FileTreeFunc adapts a function to FileTree.
type FileTreeFunc func(root string) ([]FileEntry, error)

// Entries implements FileTree.
func (f FileTreeFunc) Entries(root string) ([]FileEntry, error) {
	return f(root)
}

// ContextBuilder merges the classified file tree and the extracted
// documentation of the active project into a HardwareContext.
type ContextBuilder struct {
	Files      FileTree
	Docs       DocumentSource
	Classifier *Classifier
	Logger     *zap.Logger
}

// NewContextBuilder wires a builder with the default classifier.
func NewContextBuilder(files FileTree, docs DocumentSource, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{
		Files:      files,
		Docs:       docs,
		Classifier: NewClassifier(),
		Logger:     logger,
	}
}

// EmptyContext is returned when no project is open.
func EmptyContext() HardwareContext {
	return HardwareContext{
		FirmwareFiles: []string{},
		PCBFiles:      []string{},
		Schematics:    []string{},
		TestResults:   []string{},
		Summary:       NoProjectSummary,
	}
}

// Build produces the context for root. An empty root means no project is
// open. A file tree that cannot be read is treated as empty.
func (b *ContextBuilder) Build(root string) HardwareContext {
	if root == "" {
		metrics.ContextBuilds.WithLabelValues("no_project").Inc()
		return EmptyContext()
	}
	logger := b.logger()

	var docs []HardwareDocument
	if b.Docs != nil {
		docs = b.Docs.ProjectDocuments(root)
	}
	var entries []FileEntry
	if b.Files != nil {
		var err error
		entries, err = b.Files.Entries(root)
		if err != nil {
			logger.Warn("file tree unavailable", zap.String("root", root), zap.Error(err))
			entries = nil
		}
	}
	classifier := b.Classifier
	if classifier == nil {
		classifier = defaultClassifier
	}
	classified := classifier.Classify(entries)

	ctx := HardwareContext{
		DocumentationContext: FormatExtractedData(AggregateExtractedData(docs)),
		FirmwareFiles:        classified.Firmware,
		PCBFiles:             classified.PCB,
		Schematics:           classified.Schematic,
		TestResults:          classified.TestResult,
	}
	ctx.Summary = Digest(ctx)

	for _, category := range FileCategories() {
		metrics.ClassifiedFiles.WithLabelValues(string(category)).Set(float64(len(classified.Paths(category))))
	}
	metrics.ContextBuilds.WithLabelValues("ok").Inc()
	logger.Debug("hardware context built",
		zap.String("root", root),
		zap.Int("documents", len(docs)),
		zap.Int("firmware", len(ctx.FirmwareFiles)),
		zap.Int("pcb", len(ctx.PCBFiles)),
		zap.Int("schematics", len(ctx.Schematics)),
		zap.Int("test_results", len(ctx.TestResults)))
	return ctx
}

// Render builds the context for root and formats it for a chat prompt.
func (b *ContextBuilder) Render(root string) string {
	return FormatContext(b.Build(root))
}

func (b *ContextBuilder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}
