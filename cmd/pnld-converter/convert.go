// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pnld-converter/internal/extract"
	"github.com/pdiddy/pnld-converter/internal/pipeline"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert a local PDF into a PNLD package",
	Long: `Convert runs the conversion pipeline on a local PDF and writes the PNLD
package to the output path. The file must have a .pdf extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "output path (default converted_work.pnld)")
	convertCmd.Flags().String("backend", "", "extraction backend: native or container (default native)")
	convertCmd.Flags().Bool("no-validate", false, "skip structural PDF validation")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if b, _ := cmd.Flags().GetString("backend"); b != "" {
		cfg.Extraction.Backend = types.ExtractionBackend(b)
	}
	if skip, _ := cmd.Flags().GetBool("no-validate"); skip {
		cfg.Extraction.Validate = false
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.Package.OutputName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ext, err := extract.New(ctx, cfg.Extraction)
	if err != nil {
		return err
	}
	return convertFile(ctx, pipeline.New(ext, cfg, logger), args[0], output, cmd.OutOrStdout())
}

// convertFile converts the PDF at src and copies the archive to dst,
// printing a one-line status to w.
func convertFile(ctx context.Context, conv *pipeline.Converter, src, dst string, w io.Writer) error {
	name := filepath.Base(src)

	f, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return err
	}
	defer f.Close()

	res, err := conv.Run(ctx, types.Upload{Filename: name, Content: f})
	if err != nil {
		detail := err.Error()
		var se *pipeline.StageError
		if errors.As(err, &se) {
			detail = se.Detail()
		}
		fmt.Fprintf(w, "failed:  %s (%s)\n", name, detail)
		return err
	}
	defer res.Release()

	if err := copyArchive(res, dst); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return err
	}

	fmt.Fprintf(w, "converted: %s -> %s (%d pages, %d entries, %d bytes)\n",
		name, dst, res.Pages, len(res.Entries), res.ArchiveBytes)
	return nil
}

func copyArchive(res *pipeline.Result, dst string) error {
	in, err := res.Open()
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return out.Close()
}
