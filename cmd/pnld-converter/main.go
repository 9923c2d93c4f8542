// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pnld-converter CLI. The serve
// command runs the HTTP API; convert runs the same pipeline on a local file.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pnld-converter/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured by the root command before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the pnld-converter CLI.
var rootCmd = &cobra.Command{
	Use:   "pnld-converter",
	Short: "Convert PDF files into PNLD packages",
	Long: `pnld-converter turns a PDF into a PNLD package: a zip archive holding an
HTML5 rendering of the document text and the standard resource folders.

Run "pnld-converter serve" for the HTTP API or "pnld-converter convert" to
package a local file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelName)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", levelName, err)
		}
		logger = newLogger(os.Stderr, level, cmd.Name() == "serve")
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pnld-converter.yaml or ~/.config/pnld-converter/pnld-converter.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, or error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pnld-converter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pnld-converter"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("PNLD_CONVERTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so that environment variables and
// Unmarshal see it even when no file sets it.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("workspace.dir", d.Workspace.Dir)
	v.SetDefault("workspace.keep_failed", d.Workspace.KeepFailed)

	v.SetDefault("extraction.backend", string(d.Extraction.Backend))
	v.SetDefault("extraction.validate", d.Extraction.Validate)
	v.SetDefault("extraction.timeout", d.Extraction.Timeout)
	v.SetDefault("extraction.image", d.Extraction.Image)

	v.SetDefault("package.output_name", d.Package.OutputName)
	v.SetDefault("package.project_dir", d.Package.ProjectDir)
	v.SetDefault("package.compression_level", d.Package.CompressionLevel)
}

// loadConfig decodes the effective configuration from v.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// bindFlag binds a command flag to a config key. Binding only fails for a
// nil flag, which is a programming error.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding --%s to %s: %v", flag, key, err))
	}
}

// newLogger returns a JSON logger for long-running processes and a text
// logger for one-shot commands.
func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
