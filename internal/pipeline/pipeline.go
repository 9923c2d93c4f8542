// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns one uploaded PDF into a PNLD archive. A run walks a
// fixed list of stages inside its own workspace; any failure is reported as
// a *StageError naming the stage and the kind of failure, and no archive is
// produced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/pnld-converter/internal/extract"
	"github.com/pdiddy/pnld-converter/internal/pnld"
	"github.com/pdiddy/pnld-converter/internal/render"
	"github.com/pdiddy/pnld-converter/internal/workspace"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

const pdfExt = ".pdf"

// Converter runs conversions. It is safe for concurrent use; each Run
// allocates its own workspace.
type Converter struct {
	extractor extract.Extractor
	workspace types.WorkspaceConfig
	timeout   time.Duration
	pkg       types.PackageConfig
	logger    *slog.Logger
}

// New creates a Converter. A nil logger discards output.
func New(ext extract.Extractor, cfg types.Config, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Converter{
		extractor: ext,
		workspace: cfg.Workspace,
		timeout:   cfg.Extraction.Timeout,
		pkg:       cfg.Package,
		logger:    logger,
	}
}

type loggerKey struct{}

// WithLogger returns a context whose conversions log through logger instead
// of the Converter's own, typically one carrying request attributes.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func (c *Converter) loggerFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return c.logger
}

// Result is a finished conversion. The archive stays on disk until Release
// is called.
type Result struct {
	types.ConversionResult

	ws *workspace.Workspace
}

// Open opens the archive for reading.
func (r *Result) Open() (*os.File, error) {
	return os.Open(r.ArchivePath)
}

// Release removes the workspace holding the archive.
func (r *Result) Release() error {
	return r.ws.Release()
}

// IsPDFName reports whether name ends in .pdf, ignoring case.
func IsPDFName(name string) bool {
	return len(name) >= len(pdfExt) && strings.EqualFold(name[len(name)-len(pdfExt):], pdfExt)
}

// Title derives the document title from an upload name: the base name with
// its .pdf suffix removed.
func Title(name string) string {
	base := baseName(name)
	if IsPDFName(base) {
		base = base[:len(base)-len(pdfExt)]
	}
	return base
}

// baseName strips any client-side directories, including Windows ones.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

// Run converts up. On success the caller owns the returned Result and must
// call Release; on failure the workspace has already been removed (or kept,
// with workspace.keep_failed).
func (c *Converter) Run(ctx context.Context, up types.Upload) (_ *Result, err error) {
	start := time.Now()
	log := c.loggerFor(ctx).With("filename", up.Filename)

	if !IsPDFName(up.Filename) {
		log.Info("rejected upload", "stage", StageValidate, "kind", KindInvalidInput)
		return nil, &StageError{Stage: StageValidate, Kind: KindInvalidInput, Err: ErrInvalidUpload}
	}

	if err := ctx.Err(); err != nil {
		return nil, c.fail(log, StageWorkspace, KindCanceled, err)
	}
	ws, err := workspace.Acquire(c.workspace.Dir, c.pkg.ProjectDir, c.pkg.OutputName)
	if err != nil {
		return nil, c.fail(log, StageWorkspace, KindFilesystem, err)
	}
	log = log.With("workspace", ws.ID)
	defer func() {
		if err == nil {
			return
		}
		if c.workspace.KeepFailed {
			log.Warn("keeping failed workspace", "dir", ws.Root)
			return
		}
		if rerr := ws.Release(); rerr != nil {
			log.Error("releasing workspace", "error", rerr)
		}
	}()

	name := baseName(up.Filename)
	title := Title(up.Filename)
	pdfPath := filepath.Join(ws.ProjectDir, name)

	if err := c.stage(ctx, log, StagePersist, KindFilesystem, func() error {
		return persist(pdfPath, up.Content)
	}); err != nil {
		return nil, err
	}

	var ext extract.Extraction
	if err := c.stage(ctx, log, StageExtract, KindExtraction, func() (err error) {
		ext, err = c.extract(ctx, pdfPath)
		return err
	}); err != nil {
		return nil, err
	}

	var doc string
	if err := c.stage(ctx, log, StageRender, KindInternal, func() (err error) {
		doc, err = render.HTML(ext.Text, title)
		return err
	}); err != nil {
		return nil, err
	}

	if err := c.stage(ctx, log, StageScaffold, KindFilesystem, func() error {
		return pnld.Scaffold(ws.ProjectDir)
	}); err != nil {
		return nil, err
	}

	if err := c.stage(ctx, log, StageWrite, KindFilesystem, func() error {
		return pnld.WriteIndex(ws.ProjectDir, doc)
	}); err != nil {
		return nil, err
	}

	var entries []string
	if err := c.stage(ctx, log, StageArchive, KindFilesystem, func() (err error) {
		entries, err = pnld.Archive(ws.ProjectDir, ws.ArchivePath, c.pkg.CompressionLevel)
		return err
	}); err != nil {
		return nil, err
	}

	info, err := os.Stat(ws.ArchivePath)
	if err != nil {
		return nil, c.fail(log, StageArchive, KindFilesystem, err)
	}

	res := &Result{
		ConversionResult: types.ConversionResult{
			Title:        title,
			Pages:        ext.Pages,
			TextChars:    utf8.RuneCountInString(ext.Text),
			ArchivePath:  ws.ArchivePath,
			ArchiveBytes: info.Size(),
			Entries:      entries,
			Duration:     time.Since(start),
		},
		ws: ws,
	}
	log.Info("converted",
		"title", res.Title,
		"pages", res.Pages,
		"textChars", res.TextChars,
		"archiveBytes", res.ArchiveBytes,
		"duration", res.Duration,
	)
	return res, nil
}

// stage runs fn as the named stage. A context that ended before or during
// the stage turns the failure into KindCanceled; otherwise errors are tagged
// with kind unless fn already returned a *StageError.
func (c *Converter) stage(ctx context.Context, log *slog.Logger, s Stage, kind Kind, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return c.fail(log, s, KindCanceled, err)
	}
	start := time.Now()
	log.Debug("stage started", "stage", s)

	if err := fn(); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return c.fail(log, se.Stage, se.Kind, se.Err)
		}
		if ctx.Err() != nil {
			return c.fail(log, s, KindCanceled, err)
		}
		return c.fail(log, s, kind, err)
	}

	log.Debug("stage finished", "stage", s, "elapsed", time.Since(start))
	return nil
}

func (c *Converter) fail(log *slog.Logger, s Stage, kind Kind, err error) error {
	level := slog.LevelError
	if kind == KindCanceled || kind == KindInvalidInput {
		level = slog.LevelWarn
	}
	log.Log(context.Background(), level, "conversion failed", "stage", s, "kind", kind, "error", err)
	return &StageError{Stage: s, Kind: kind, Err: err}
}

// extract applies the extraction timeout. A timeout is an extraction
// failure, not a cancellation.
func (c *Converter) extract(ctx context.Context, pdfPath string) (extract.Extraction, error) {
	ectx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ext, err := c.extractor.Extract(ectx, pdfPath)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return extract.Extraction{}, fmt.Errorf("extraction timed out after %s", c.timeout)
	}
	return ext, err
}

// persist streams the upload to dst. A failure to read the upload is the
// client's problem and is reported as invalid input.
func persist(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(dst), err)
	}

	r := &readErrRecorder{r: src}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		if r.err != nil {
			return &StageError{Stage: StagePersist, Kind: KindInvalidInput, Err: fmt.Errorf("reading upload: %w", r.err)}
		}
		return fmt.Errorf("writing %s: %w", filepath.Base(dst), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// readErrRecorder remembers the first non-EOF read error so persist can tell
// a broken upload from a broken disk.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (rr *readErrRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}
