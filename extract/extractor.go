// Package extract turns uploaded hardware documents into metadata and
// structured hardware data, and runs the upload pipeline that stores them.
package extract

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// Extractor is the extraction service contract. Either call may fail for any
// reason; callers go through Service, which degrades failures to empty values.
type Extractor interface {
	ExtractMetadata(ctx context.Context, filePath, fileType string) (hardware.DocumentMetadata, error)
	ExtractHardwareData(ctx context.Context, filePath, fileType string) (hardware.ExtractedData, error)
}

const (
	opMetadata = "extract_document_metadata"
	opData     = "extract_hardware_data"
)

// Service wraps an Extractor with best-effort semantics: errors are logged
// and counted, and the caller always gets a value.
type Service struct {
	Extractor Extractor
	Logger    *zap.Logger
}

// NewService wraps extractor.
func NewService(extractor Extractor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Extractor: extractor, Logger: logger}
}

// Metadata returns the document metadata, or metadata with only empty tags
// when extraction fails.
func (s *Service) Metadata(ctx context.Context, filePath, fileType string) hardware.DocumentMetadata {
	empty := hardware.DocumentMetadata{Tags: []string{}}
	if s == nil || s.Extractor == nil {
		return empty
	}
	start := time.Now()
	md, err := s.Extractor.ExtractMetadata(ctx, filePath, fileType)
	metrics.ExtractionDuration.WithLabelValues(opMetadata).Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(opMetadata, filePath, err)
		return empty
	}
	if md.Tags == nil {
		md.Tags = []string{}
	}
	return md
}

// Data returns the extracted hardware data, or an empty value when
// extraction fails.
func (s *Service) Data(ctx context.Context, filePath, fileType string) hardware.ExtractedData {
	if s == nil || s.Extractor == nil {
		return hardware.ExtractedData{}
	}
	start := time.Now()
	data, err := s.Extractor.ExtractHardwareData(ctx, filePath, fileType)
	metrics.ExtractionDuration.WithLabelValues(opData).Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(opData, filePath, err)
		return hardware.ExtractedData{}
	}
	return data
}

func (s *Service) fail(op, filePath string, err error) {
	metrics.ExtractionFailures.WithLabelValues(op).Inc()
	s.logger().Warn("extraction failed",
		zap.String("operation", op),
		zap.String("path", filePath),
		zap.Error(err))
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Chain tries each extractor in order and returns the first success. It
// fails only when every extractor fails.
type Chain []Extractor

// ExtractMetadata implements Extractor.
func (c Chain) ExtractMetadata(ctx context.Context, filePath, fileType string) (hardware.DocumentMetadata, error) {
	var errs []error
	for _, ex := range c {
		md, err := ex.ExtractMetadata(ctx, filePath, fileType)
		if err == nil {
			return md, nil
		}
		errs = append(errs, err)
	}
	return hardware.DocumentMetadata{}, chainError(errs)
}

// ExtractHardwareData implements Extractor.
func (c Chain) ExtractHardwareData(ctx context.Context, filePath, fileType string) (hardware.ExtractedData, error) {
	var errs []error
	for _, ex := range c {
		data, err := ex.ExtractHardwareData(ctx, filePath, fileType)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err)
	}
	return hardware.ExtractedData{}, chainError(errs)
}

func chainError(errs []error) error {
	if len(errs) == 0 {
		return errors.New("no extractor configured")
	}
	return errors.Join(errs...)
}
