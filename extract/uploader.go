package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// ErrNoProject is returned when an upload is attempted with no project open.
var ErrNoProject = errors.New("no project opened")

// DocumentSink is the part of the document store the uploader writes to.
type DocumentSink interface {
	EnsureProject(root string) hardware.Project
	AddDocument(projectID string, doc hardware.HardwareDocument)
	UpdateDocument(projectID, docID string, patch docstore.DocumentPatch)
	UpdateExtractedData(projectID, docID string, data hardware.ExtractedData)
	SetProcessing(processing bool, docID string)
	DocumentByID(docID string) (hardware.HardwareDocument, bool)
}

// Uploader registers documents and runs both extraction calls for each one.
// Files are processed one at a time in the order given.
type Uploader struct {
	Store   DocumentSink
	Service *Service
	Logger  *zap.Logger
	now     func() time.Time
}

// NewUploader wires an uploader.
func NewUploader(store DocumentSink, service *Service, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{Store: store, Service: service, Logger: logger, now: time.Now}
}

// UploadFiles uploads paths sequentially into the project at root. A
// cancelled context stops before the next file; the file in flight is
// always finished.
func (u *Uploader) UploadFiles(ctx context.Context, root string, paths []string) ([]hardware.HardwareDocument, error) {
	if root == "" {
		u.Logger.Error("upload rejected", zap.Error(ErrNoProject))
		return nil, ErrNoProject
	}
	docs := make([]hardware.HardwareDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		doc, err := u.UploadDocument(ctx, root, path)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UploadDocument registers one file and extracts its metadata and data.
// Extraction failures leave the document in place with empty values.
func (u *Uploader) UploadDocument(ctx context.Context, root, filePath string) (hardware.HardwareDocument, error) {
	if root == "" {
		u.Logger.Error("upload rejected", zap.String("path", filePath), zap.Error(ErrNoProject))
		return hardware.HardwareDocument{}, ErrNoProject
	}
	name := filepath.Base(filePath)
	docType := hardware.DetectDocumentType(name)
	mimeType := hardware.MimeType(name)

	var size int64
	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		size = info.Size()
	}

	now := u.clock()
	doc := hardware.HardwareDocument{
		ID:           hardware.NewDocumentID(now),
		ProjectID:    root,
		Name:         name,
		Type:         docType,
		FilePath:     filePath,
		FileSize:     size,
		UploadedAt:   now,
		LastAccessed: now,
		Metadata:     hardware.DocumentMetadata{Tags: []string{}},
	}

	u.Store.EnsureProject(root)
	u.Store.SetProcessing(true, doc.ID)
	defer u.Store.SetProcessing(false, "")
	u.Store.AddDocument(root, doc)
	metrics.DocumentsUploaded.WithLabelValues(string(docType)).Inc()
	u.Logger.Info("document added",
		zap.String("id", doc.ID),
		zap.String("path", filePath),
		zap.String("type", string(docType)),
		zap.Int64("size", size))

	metadata := u.Service.Metadata(ctx, filePath, mimeType)
	u.Store.UpdateDocument(root, doc.ID, docstore.DocumentPatch{Metadata: &metadata})

	data := u.Service.Data(ctx, filePath, string(docType))
	u.Store.UpdateExtractedData(root, doc.ID, data)

	if stored, ok := u.Store.DocumentByID(doc.ID); ok {
		return stored, nil
	}
	return doc, nil
}

func (u *Uploader) clock() time.Time {
	if u.now == nil {
		return time.Now()
	}
	return u.now()
}
