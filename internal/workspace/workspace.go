// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace allocates the scratch directory tree for one conversion.
// Every workspace lives under a shared root in a directory named by a fresh
// UUID, so concurrent conversions never touch each other's files.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is the directory tree owned by a single conversion.
type Workspace struct {
	// ID names the workspace directory.
	ID string

	// Root is <root>/<ID>.
	Root string

	// ProjectDir is the folder that gets archived.
	ProjectDir string

	// ArchivePath is where the archive is written, outside ProjectDir.
	ArchivePath string

	once sync.Once
	err  error
}

// Acquire creates <root>/<uuid>/<projectDir> and returns the workspace.
// root is created if absent.
func Acquire(root, projectDir, archiveName string) (*Workspace, error) {
	if projectDir == "" || archiveName == "" {
		return nil, fmt.Errorf("workspace needs a project dir and an archive name")
	}
	if filepath.Base(projectDir) != projectDir || filepath.Base(archiveName) != archiveName {
		return nil, fmt.Errorf("project dir %q and archive name %q must be plain names", projectDir, archiveName)
	}

	id := uuid.NewString()
	ws := &Workspace{
		ID:          id,
		Root:        filepath.Join(root, id),
		ProjectDir:  filepath.Join(root, id, projectDir),
		ArchivePath: filepath.Join(root, id, archiveName),
	}
	if err := os.MkdirAll(ws.ProjectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return ws, nil
}

// Release removes the workspace tree. It is safe to call more than once;
// later calls return the result of the first.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Root); err != nil {
			w.err = fmt.Errorf("removing workspace %s: %w", w.ID, err)
		}
	})
	return w.err
}
