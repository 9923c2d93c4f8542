// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/pnld-converter/internal/container"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

// ContainerExtractor pipes PDFs through a pdftotext-style container image.
// The image reads the PDF on stdin and writes text on stdout, ending each
// page with a form feed.
type ContainerExtractor struct {
	runtime container.Runtime
	image   string
}

// NewContainerExtractor verifies that image exists in rt before returning.
func NewContainerExtractor(ctx context.Context, rt container.Runtime, image string) (*ContainerExtractor, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("extraction image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerExtractor{runtime: rt, image: image}, nil
}

// Extract runs the container on the PDF at pdfPath.
func (c *ContainerExtractor) Extract(ctx context.Context, pdfPath string) (Extraction, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return Extraction{}, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, f, &out); err != nil {
		if ctx.Err() != nil {
			return Extraction{}, ctx.Err()
		}
		return Extraction{}, c.fail(pdfPath, err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return Extraction{}, c.fail(pdfPath, fmt.Errorf("%s produced no text", c.image))
	}

	raw := strings.TrimRight(out.String(), "\f\n")
	pages := strings.Count(raw, "\f") + 1
	text := strings.ReplaceAll(raw, "\f", "\n")

	return Extraction{Text: strings.ToValidUTF8(text, "\uFFFD"), Pages: pages}, nil
}

func (c *ContainerExtractor) fail(path string, err error) error {
	return &Error{Backend: types.BackendContainer, Path: path, Err: err}
}
