// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of a conversion.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageWorkspace Stage = "workspace"
	StagePersist   Stage = "persist"
	StageExtract   Stage = "extract"
	StageRender    Stage = "render"
	StageScaffold  Stage = "scaffold"
	StageWrite     Stage = "write"
	StageArchive   Stage = "archive"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageValidate,
	StageWorkspace,
	StagePersist,
	StageExtract,
	StageRender,
	StageScaffold,
	StageWrite,
	StageArchive,
}

// Kind classifies a failure for callers that map errors to responses.
type Kind string

const (
	// KindInvalidInput means the upload itself was rejected.
	KindInvalidInput Kind = "invalid_input"

	// KindExtraction means the PDF could not be turned into text.
	KindExtraction Kind = "extraction"

	// KindFilesystem means the workspace could not be read or written.
	KindFilesystem Kind = "filesystem"

	// KindCanceled means the caller's context ended before the run did.
	KindCanceled Kind = "canceled"

	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// InvalidUploadMessage is shown to clients whose upload is not a PDF.
const InvalidUploadMessage = "Please upload a valid PDF file."

// ErrInvalidUpload is the cause of a validate-stage failure.
var ErrInvalidUpload = errors.New("upload is not a .pdf file")

// StageError records which stage failed and how.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Detail is the client-facing message for the failure. Extraction errors
// are forwarded verbatim.
func (e *StageError) Detail() string {
	if errors.Is(e.Err, ErrInvalidUpload) {
		return InvalidUploadMessage
	}
	return e.Err.Error()
}

// KindOf returns the kind of err, KindInternal when err carries no
// StageError.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
