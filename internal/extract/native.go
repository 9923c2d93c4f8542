// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/pnld-converter/pkg/types"
)

// pdfcpu otherwise installs a config directory under the user's home on
// first use, which fails in read-only containers.
var disableConfigDir sync.Once

// NativeExtractor extracts text in-process with ledongthuc/pdf. When validate
// is set the file is first checked with pdfcpu in relaxed mode, which also
// yields a reliable page count.
type NativeExtractor struct {
	validate bool
}

// NewNativeExtractor creates an in-process extractor.
func NewNativeExtractor(validate bool) *NativeExtractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &NativeExtractor{validate: validate}
}

// Extract validates (optionally) and reads every page of the PDF at pdfPath.
func (n *NativeExtractor) Extract(ctx context.Context, pdfPath string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	var pages int
	if n.validate {
		count, err := validate(pdfPath)
		if err != nil {
			return Extraction{}, n.fail(pdfPath, err)
		}
		pages = count
	}

	text, numPage, err := readText(ctx, pdfPath)
	if err != nil {
		if ctx.Err() != nil {
			return Extraction{}, ctx.Err()
		}
		return Extraction{}, n.fail(pdfPath, err)
	}
	if pages == 0 {
		pages = numPage
	}

	return Extraction{Text: text, Pages: pages}, nil
}

func (n *NativeExtractor) fail(path string, err error) error {
	return &Error{Backend: types.BackendNative, Path: path, Err: err}
}

func validate(pdfPath string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(pdfPath, conf); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	count, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return count, nil
}

// readText extracts the plain text of every page, joining pages with a
// newline. Invalid UTF-8 is replaced so the HTML stage never sees it.
func readText(ctx context.Context, pdfPath string) (text string, numPage int, err error) {
	// ledongthuc/pdf panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", 0, fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	numPage = r.NumPage()
	var b strings.Builder
	for i := 1; i <= numPage; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}

	return strings.ToValidUTF8(b.String(), "\uFFFD"), numPage, nil
}
