// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls plain text out of PDF files. Backends are pluggable
// behind the Extractor interface so the conversion pipeline can swap them or
// replace them with fakes in tests.
package extract

import (
	"context"
	"fmt"

	"github.com/pdiddy/pnld-converter/internal/container"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

// Extraction is the text recovered from one PDF.
type Extraction struct {
	// Text is the document text, pages separated by newlines. Reading order
	// and whitespace are whatever the backend produces.
	Text string

	// Pages is the page count, or 0 when the backend cannot tell.
	Pages int
}

// Extractor turns a PDF on disk into text. Implementations return an *Error
// for anything that goes wrong with the document itself.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (Extraction, error)
}

// Error reports that a PDF could not be turned into text: corrupt, encrypted
// or otherwise unsupported. Its message is meant to be shown to clients as is.
type Error struct {
	Backend types.ExtractionBackend
	Path    string
	Err     error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// New builds the extractor selected by cfg.Backend.
func New(ctx context.Context, cfg types.ExtractionConfig) (Extractor, error) {
	switch cfg.Backend {
	case types.BackendNative, "":
		return NewNativeExtractor(cfg.Validate), nil
	case types.BackendContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewContainerExtractor(ctx, rt, cfg.Image)
	default:
		return nil, fmt.Errorf("unknown extraction backend %q (want %s or %s)",
			cfg.Backend, types.BackendNative, types.BackendContainer)
	}
}
