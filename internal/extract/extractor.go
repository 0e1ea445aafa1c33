// Package extract turns uploaded policy documents into normalized plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SupportedExtensions lists the extensions ExtractBytes understands.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// Extractor extracts plain text from document files.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for the extractor.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its normalized text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension (with leading dot)
// and normalizes its whitespace. A document without text yields "" and no error.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", nil
	}
	var (
		raw string
		err error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		raw, err = e.extractPDF(content)
	case ".docx":
		raw, err = extractDOCX(content)
	case ".txt", ".md", "":
		raw, err = extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}
	return NormalizeWhitespace(raw), nil
}

// IsSupported reports whether ext (with leading dot) has an extractor.
func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}
