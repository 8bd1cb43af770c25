package cmd

import "github.com/ardnew/stencil/lang"

// Command errors share the [lang.Error] representation so that template and
// command failures log the same way.
var (
	ErrCommand = lang.NewError("command failed")

	ErrNoSource    = ErrCommand.Derive("no template source")
	ErrReadData    = ErrCommand.Derive("read data file")
	ErrInvalidSet  = ErrCommand.Derive("invalid variable assignment (want key=value)")
	ErrDelimiters  = ErrCommand.Derive("invalid delimiters (want OPEN,CLOSE)")
	ErrYAMLMarshal = ErrCommand.Derive("marshal YAML")
	ErrWriteOutput = ErrCommand.Derive("write output")
	ErrWriteConfig = ErrCommand.Derive("write configuration file")
	ErrFileExists  = ErrCommand.Derive("file exists (use --force to overwrite)")
)
