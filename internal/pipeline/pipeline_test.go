// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pnld-converter/internal/extract"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

// fakeExtractor implements extract.Extractor with canned output. When text
// is empty it echoes the persisted file content, which lets tests check what
// reached disk.
type fakeExtractor struct {
	text  string
	pages int
	err   error
	block bool
}

func (f *fakeExtractor) Extract(ctx context.Context, pdfPath string) (extract.Extraction, error) {
	if f.block {
		<-ctx.Done()
		return extract.Extraction{}, ctx.Err()
	}
	if f.err != nil {
		return extract.Extraction{}, f.err
	}
	text := f.text
	if text == "" {
		data, err := os.ReadFile(pdfPath)
		if err != nil {
			return extract.Extraction{}, err
		}
		text = string(data)
	}
	return extract.Extraction{Text: text, Pages: f.pages}, nil
}

func testConfig(t *testing.T) types.Config {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Workspace.Dir = filepath.Join(t.TempDir(), "temp")
	return cfg
}

func upload(name, content string) types.Upload {
	return types.Upload{Filename: name, Content: strings.NewReader(content)}
}

// workspaces lists the directories left under the workspace root.
func workspaces(t *testing.T, cfg types.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.Workspace.Dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(data)
	}
	return out
}

func TestRun_Success(t *testing.T) {
	cfg := testConfig(t)
	c := New(&fakeExtractor{text: "Texto simulado do PDF.", pages: 3}, cfg, nil)

	res, err := c.Run(context.Background(), upload("sample.pdf", "%PDF-1.4 Fake content"))
	require.NoError(t, err)

	assert.Equal(t, "sample", res.Title)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, len("Texto simulado do PDF."), res.TextChars)
	assert.Equal(t, "converted_work.pnld", filepath.Base(res.ArchivePath))
	assert.Positive(t, res.ArchiveBytes)
	assert.Contains(t, res.Entries, "index.html")
	assert.Contains(t, res.Entries, "sample.pdf")

	files := zipEntries(t, res.ArchivePath)
	assert.Contains(t, files["index.html"], "Texto simulado do PDF.")
	assert.Contains(t, files["index.html"], "<title>sample</title>")
	assert.Equal(t, "%PDF-1.4 Fake content", files["sample.pdf"])
	for _, keep := range []string{
		"content/.keep",
		"resources/images/.keep",
		"resources/styles/.keep",
		"resources/scripts/.keep",
		"resources/fonts/.keep",
	} {
		assert.Contains(t, files, keep)
	}

	f, err := res.Open()
	require.NoError(t, err)
	f.Close()

	require.NoError(t, res.Release())
	assert.Empty(t, workspaces(t, cfg))
}

func TestRun_InvalidUpload(t *testing.T) {
	for _, name := range []string{"fake.txt", "sample.pdf.exe", "", "pdf"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			cfg := testConfig(t)
			c := New(&fakeExtractor{text: "unused"}, cfg, nil)

			_, err := c.Run(context.Background(), upload(name, "plain text"))

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageValidate, se.Stage)
			assert.Equal(t, KindInvalidInput, se.Kind)
			assert.ErrorIs(t, err, ErrInvalidUpload)
			assert.Equal(t, InvalidUploadMessage, se.Detail())

			_, statErr := os.Stat(cfg.Workspace.Dir)
			assert.True(t, os.IsNotExist(statErr), "no filesystem mutation")
		})
	}
}

func TestRun_ExtractionError(t *testing.T) {
	cfg := testConfig(t)
	cause := &extract.Error{Backend: types.BackendNative, Err: errors.New("malformed PDF: xref not found")}
	c := New(&fakeExtractor{err: cause}, cfg, nil)

	_, err := c.Run(context.Background(), upload("broken.pdf", "%PDF"))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.Equal(t, KindExtraction, se.Kind)
	assert.Equal(t, "malformed PDF: xref not found", se.Detail())
	assert.Empty(t, workspaces(t, cfg), "failed workspace is removed")
}

func TestRun_KeepFailed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workspace.KeepFailed = true
	c := New(&fakeExtractor{err: errors.New("boom")}, cfg, nil)

	_, err := c.Run(context.Background(), upload("broken.pdf", "%PDF"))
	require.Error(t, err)

	kept := workspaces(t, cfg)
	require.Len(t, kept, 1)
	_, statErr := os.Stat(filepath.Join(cfg.Workspace.Dir, kept[0], cfg.Package.ProjectDir, "broken.pdf"))
	assert.NoError(t, statErr)
}

func TestRun_ExtractionTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.Timeout = 20 * time.Millisecond
	c := New(&fakeExtractor{block: true}, cfg, nil)

	_, err := c.Run(context.Background(), upload("slow.pdf", "%PDF"))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.Equal(t, KindExtraction, se.Kind)
	assert.Contains(t, se.Detail(), "timed out")
}

func TestRun_Canceled(t *testing.T) {
	cfg := testConfig(t)
	c := New(&fakeExtractor{text: "x"}, cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, upload("sample.pdf", "%PDF"))

	assert.Equal(t, KindCanceled, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, workspaces(t, cfg))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRun_BrokenUpload(t *testing.T) {
	cfg := testConfig(t)
	c := New(&fakeExtractor{text: "x"}, cfg, nil)

	_, err := c.Run(context.Background(), types.Upload{Filename: "sample.pdf", Content: brokenReader{}})

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePersist, se.Stage)
	assert.Equal(t, KindInvalidInput, se.Kind)
	assert.Contains(t, se.Detail(), "connection reset")
	assert.Empty(t, workspaces(t, cfg))
}

func TestRun_WorkspaceFailure(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Workspace.Dir, []byte("not a dir"), 0o644))
	c := New(&fakeExtractor{text: "x"}, cfg, nil)

	_, err := c.Run(context.Background(), upload("sample.pdf", "%PDF"))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageWorkspace, se.Stage)
	assert.Equal(t, KindFilesystem, se.Kind)
}

func TestRun_ArchiveFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Package.CompressionLevel = 99
	c := New(&fakeExtractor{text: "x"}, cfg, nil)

	_, err := c.Run(context.Background(), upload("sample.pdf", "%PDF"))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageArchive, se.Stage)
	assert.Equal(t, KindFilesystem, se.Kind)
	assert.Empty(t, workspaces(t, cfg))
}

func TestRun_Concurrent(t *testing.T) {
	cfg := testConfig(t)
	// Echo mode: each index.html carries its own upload content.
	c := New(&fakeExtractor{}, cfg, nil)
	const n = 8

	var wg sync.WaitGroup
	results := make([]*Result, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Run(context.Background(), upload("sample.pdf", fmt.Sprintf("document %d", i)))
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range n {
		require.NoError(t, errs[i])
		res := results[i]
		assert.False(t, seen[res.ArchivePath], "archive paths are unique")
		seen[res.ArchivePath] = true

		files := zipEntries(t, res.ArchivePath)
		assert.Contains(t, files["index.html"], fmt.Sprintf("document %d", i))
		assert.Equal(t, fmt.Sprintf("document %d", i), files["sample.pdf"])
		require.NoError(t, res.Release())
	}
	assert.Empty(t, workspaces(t, cfg))
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "sample.pdf", want: "sample"},
		{name: "Obra Teste.PDF", want: "Obra Teste"},
		{name: `C:\Users\ana\livro.pdf`, want: "livro"},
		{name: "../../etc/passwd.pdf", want: "passwd"},
		{name: "archive.tar.pdf", want: "archive.tar"},
		{name: ".pdf", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.name))
		})
	}
}

func TestIsPDFName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"sample.pdf", true},
		{"SAMPLE.PDF", true},
		{"mixed.Pdf", true},
		{"fake.txt", false},
		{"pdf", false},
		{"sample.pdf ", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPDFName(tt.name), tt.name)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", &StageError{Stage: StageWrite, Kind: KindFilesystem, Err: errors.New("disk full")})
	assert.Equal(t, KindFilesystem, KindOf(wrapped))
	assert.Equal(t, "write: disk full", errors.Unwrap(wrapped).Error())
}

func TestRun_LogsThroughContextLogger(t *testing.T) {
	cfg := testConfig(t)
	var base, scoped bytes.Buffer
	c := New(&fakeExtractor{text: "x"}, cfg, slog.New(slog.NewTextHandler(&base, nil)))

	ctx := WithLogger(context.Background(),
		slog.New(slog.NewTextHandler(&scoped, nil)).With("requestId", "req-1"))
	res, err := c.Run(ctx, upload("sample.pdf", "%PDF"))
	require.NoError(t, err)
	defer res.Release()

	assert.Empty(t, base.String())
	assert.Contains(t, scoped.String(), "requestId=req-1")
	assert.Contains(t, scoped.String(), "msg=converted")
	assert.Contains(t, scoped.String(), "filename=sample.pdf")
}
