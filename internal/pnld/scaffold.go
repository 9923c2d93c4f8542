// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pnld lays out and archives PNLD project folders. A project holds
// index.html at its root, the fixed resource skeleton returned by Folders,
// and whatever else the caller writes into it.
package pnld

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// IndexFile is the name of the rendered document at the project root.
	IndexFile = "index.html"

	// KeepFile marks otherwise empty folders so archivers keep them.
	KeepFile = ".keep"
)

// folders is the resource skeleton, slash-separated and relative to the
// project root.
var folders = []string{
	"content",
	"resources/images",
	"resources/styles",
	"resources/scripts",
	"resources/fonts",
}

// Folders returns the skeleton folder names in creation order.
func Folders() []string {
	return append([]string(nil), folders...)
}

// Scaffold creates the resource skeleton under dir, each folder holding an
// empty .keep file. dir is created if absent. Calling Scaffold again on an
// existing project is a no-op apart from truncating the .keep files.
func Scaffold(dir string) error {
	for _, f := range folders {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", f, err)
		}
		if err := os.WriteFile(filepath.Join(path, KeepFile), nil, 0o644); err != nil {
			return fmt.Errorf("writing %s/%s: %w", f, KeepFile, err)
		}
	}
	return nil
}

// WriteIndex writes doc to index.html at the root of dir, replacing any
// previous file.
func WriteIndex(dir, doc string) error {
	if err := os.WriteFile(filepath.Join(dir, IndexFile), []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", IndexFile, err)
	}
	return nil
}
