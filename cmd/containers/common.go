package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/omencyber/containers/internal/logger"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	appFs       afero.Fs  = afero.NewOsFs()
	stdout      io.Writer = os.Stdout
	stderr      io.Writer = os.Stderr
	progressOut io.Writer = os.Stderr
)

func initBar(p *mpb.Progress, total int) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	name := "Decoding"

	bar := p.New(int64(total),
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.CountersNoUnit("%d / %d", decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)
	return bar
}

// newLogger logs to stderr and, when path is set, appends to that file too.
func newLogger(path string) (logger.Logger, error) {
	console := logger.NewStandardLogger(log.New(stderr, "", 0))
	if path == "" {
		return console, nil
	}
	f, err := appFs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	file := logger.NewFileLogger(log.New(f, "", log.LstdFlags), f.Close)
	return logger.NewMultiLogger(console, file), nil
}

// help prints the application help, or the help of the named command.
func help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		return cli.ShowAppHelp(ctx)
	}
	return cli.ShowCommandHelp(ctx, arg)
}

func getVersion(ctx *cli.Context) error {
	fmt.Fprintf(
		stdout,
		"%s %s (%s_%s)\nBuild: %s=%s\n",
		ctx.App.Name,
		ctx.App.Version,
		runtime.GOOS,
		runtime.GOARCH,
		date, commit,
	)
	return nil
}

func printRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	fmt.Fprintf(stderr, "%s: %s[%s]: %s\n", ctx.App.HelpName, cmd, action, err.Error())
}

// printErrWithCmdHelp prints err followed by the help of the running command
// and returns err.
func printErrWithCmdHelp(ctx *cli.Context, err error) error {
	fmt.Fprintf(stderr, "%s: %s\n\n", ctx.App.HelpName, err.Error())
	if herr := cli.ShowCommandHelp(ctx, ctx.Command.Name); herr != nil {
		fmt.Fprintln(stderr, herr.Error())
	}
	return err
}

func usageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return printErrWithCmdHelp(ctx, err)
	}
	fmt.Fprintf(stderr, "%s: %s\n\n", ctx.App.HelpName, err.Error())
	if herr := cli.ShowAppHelp(ctx); herr != nil {
		fmt.Fprintln(stderr, herr.Error())
	}
	return err
}
