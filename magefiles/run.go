//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Serve builds the binary and runs the HTTP API with debug logging.
func Serve() error {
	mg.SerialDeps(Init, Build)
	return sh.RunV("./"+binDir+"/"+binName, "serve", "--log-level", "debug")
}

// Convert builds the binary and packages a local PDF into converted_work.pnld.
func Convert(pdf string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "convert", pdf)
}
