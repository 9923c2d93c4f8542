// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ServerConfig holds settings for the HTTP front end.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the request body size of POST /convert (default 50 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// AllowedOrigins lists the CORS origins permitted to call the API.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// WorkspaceConfig holds settings for the scratch directories used during a
// conversion.
type WorkspaceConfig struct {
	// Dir is the parent directory under which each conversion gets its own
	// uniquely named workspace.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// KeepFailed leaves the workspace of a failed conversion on disk for
	// inspection instead of removing it.
	KeepFailed bool `json:"keep_failed" yaml:"keep_failed" mapstructure:"keep_failed"`
}

// ExtractionBackend identifies the PDF text extraction implementation.
type ExtractionBackend string

const (
	BackendNative    ExtractionBackend = "native"
	BackendContainer ExtractionBackend = "container"
)

// ExtractionConfig holds settings for the text extraction stage.
type ExtractionConfig struct {
	// Backend selects the extractor: native or container.
	Backend ExtractionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Validate runs a structural validation of the PDF before extraction.
	// Only the native backend honours it.
	Validate bool `json:"validate" yaml:"validate" mapstructure:"validate"`

	// Timeout bounds a single extraction. Zero disables the bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Image is the container image used by the container backend. It must
	// read a PDF on stdin and write plain text to stdout.
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// PackageConfig holds settings for the produced archive.
type PackageConfig struct {
	// OutputName is the file name the archive is served under.
	OutputName string `json:"output_name" yaml:"output_name" mapstructure:"output_name"`

	// ProjectDir is the name of the folder assembled inside a workspace.
	ProjectDir string `json:"project_dir" yaml:"project_dir" mapstructure:"project_dir"`

	// CompressionLevel is the deflate level, -1 (default) through 9.
	CompressionLevel int `json:"compression_level" yaml:"compression_level" mapstructure:"compression_level"`
}

// Config groups all settings of the converter.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Workspace  WorkspaceConfig  `json:"workspace" yaml:"workspace" mapstructure:"workspace"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Package    PackageConfig    `json:"package" yaml:"package" mapstructure:"package"`
}

// Defaults applied when neither a config file, the environment nor a flag
// provides a value.
const (
	DefaultAddr             = ":8000"
	DefaultMaxUploadBytes   = 50 << 20
	DefaultWorkspaceDir     = "temp"
	DefaultOutputName       = "converted_work.pnld"
	DefaultProjectDir       = "pnld_project"
	DefaultContainerImage   = "pdftotext:latest"
	DefaultCompressionLevel = -1
)

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    300 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Workspace: WorkspaceConfig{
			Dir: DefaultWorkspaceDir,
		},
		Extraction: ExtractionConfig{
			Backend:  BackendNative,
			Validate: true,
			Timeout:  2 * time.Minute,
			Image:    DefaultContainerImage,
		},
		Package: PackageConfig{
			OutputName:       DefaultOutputName,
			ProjectDir:       DefaultProjectDir,
			CompressionLevel: DefaultCompressionLevel,
		},
	}
}
