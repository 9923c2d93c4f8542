// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"io"
	"time"
)

// Upload is a single file handed to the converter. Content is consumed once.
type Upload struct {
	// Filename is the client-supplied name, e.g. "obra.pdf".
	Filename string

	// Content streams the file bytes.
	Content io.Reader
}

// ConversionResult describes a finished PNLD package.
type ConversionResult struct {
	// Title is the document title, the upload name without its .pdf suffix.
	Title string `json:"title" yaml:"title"`

	// Pages is the page count reported by the extractor, 0 when unknown.
	Pages int `json:"pages" yaml:"pages"`

	// TextChars is the number of characters of extracted text.
	TextChars int `json:"text_chars" yaml:"text_chars"`

	// ArchivePath is the location of the archive inside the workspace.
	ArchivePath string `json:"archive_path" yaml:"archive_path"`

	// ArchiveBytes is the archive size on disk.
	ArchiveBytes int64 `json:"archive_bytes" yaml:"archive_bytes"`

	// Entries lists the archive entry names in write order.
	Entries []string `json:"entries" yaml:"entries"`

	// Duration is the wall time of the whole pipeline.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
