package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stencil/cli/cmd"
	"github.com/ardnew/stencil/pkg"
)

// CLI is the top-level command-line interface for stencil.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Config  string   `default:"${config}" help:"YAML configuration file" short:"c" type:"path"`
	Include []string `help:"Template(s) rendered ahead of every template, sharing its variables" placeholder:"FILE" short:"I" type:"existingfile"`

	Init    cmd.Init    `cmd:"" help:"Write the current flag values to the configuration file"`
	Fmt     cmd.Fmt     `cmd:"" help:"Format a template"`
	Repl    cmd.Repl    `cmd:"" help:"Start an interactive session"`
	Version cmd.Version `cmd:"" help:"Print version information"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render templates (default)"`
}

// Exit codes returned by [ExitCode].
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode returns the process exit status for an error returned by [Run]:
// [ExitUsage] for command-line errors and [ExitFailure] for everything else.
func ExitCode(err error) int {
	var perr *kong.ParseError
	if errors.As(err, &perr) {
		return ExitUsage
	}

	return ExitFailure
}

// Run executes the stencil CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := scanConfig(args, configPath(baseConfig))

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.DefaultEnvars(strings.ToUpper(pkg.Name)),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(resolve, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithIncludes(ctx, cli.Include)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
