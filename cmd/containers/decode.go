package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/omencyber/containers"
	"github.com/omencyber/containers/internal/config"
	"github.com/omencyber/containers/record"
	"github.com/omencyber/containers/report"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

var decodeFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "output, o",
		Usage: "directory or file to write reports to (default: stdout for a single container)",
	},
	cli.StringFlag{
		Name:  "format, f",
		Usage: "report format: json, text, netscape, flat or sqlite (default: json)",
	},
	cli.StringFlag{
		Name:  "timezone, z",
		Usage: "timezone for report timestamps, e.g. Australia/Sydney (default: UTC)",
	},
	cli.IntFlag{
		Name:  "workers, w",
		Usage: "pages decoded concurrently per cookie jar (default: 1)",
	},
	cli.StringFlag{
		Name:  "filter",
		Usage: "only report cookies whose domain matches this regexp",
	},
	cli.StringFlag{
		Name:  "config, c",
		Usage: "configuration file (json, yaml, toml, ini, ...)",
	},
	cli.BoolFlag{
		Name:  "progress, p",
		Usage: "show a progress bar when decoding several containers",
	},
	cli.StringFlag{
		Name:  "log-file",
		Usage: "append log messages to this file",
	},
}

// flagKeys maps the string flags to the configuration keys they override.
var flagKeys = map[string]string{
	"output":   config.KeyDir,
	"format":   config.KeyFormat,
	"timezone": config.KeyTimezone,
	"filter":   config.KeyDomain,
}

func overrides(ctx *cli.Context) map[string]interface{} {
	o := make(map[string]interface{})
	for flag, key := range flagKeys {
		if ctx.IsSet(flag) {
			o[key] = ctx.String(flag)
		}
	}
	if ctx.IsSet("workers") {
		o[config.KeyWorkers] = ctx.Int("workers")
	}
	if ctx.IsSet("progress") {
		o[config.KeyProgress] = ctx.Bool("progress")
	}
	return o
}

func decode(ctx *cli.Context) error {
	paths := ctx.Args()
	if len(paths) == 0 {
		return printErrWithCmdHelp(
			ctx,
			errors.New("no container path provided"),
		)
	} else if paths.First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	l, err := newLogger(ctx.String("log-file"))
	if err != nil {
		printRuntimeErr(ctx, "decode", "open_log_file", err)
		return err
	}
	defer l.Close()

	cfg, err := config.Load(appFs, ctx.String("config"), overrides(ctx), l)
	if err != nil {
		printRuntimeErr(ctx, "decode", "load_config", err)
		return err
	}

	opts := &containers.Options{
		Workers: int(cfg.Workers),
		MaxSize: int64(cfg.MaxSize),
		Logger:  l,
	}

	sep := string(os.PathSeparator)
	dest := cfg.Dir
	toStdout := dest == "" && len(paths) == 1 && cfg.Format.Stream()
	if dest == "" && !toStdout {
		dest = "." + sep
	}
	if len(paths) > 1 && !strings.HasSuffix(dest, sep) {
		dest += sep
	}

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if cfg.Progress && len(paths) > 1 {
		p = mpb.New(mpb.WithOutput(progressOut), mpb.WithWidth(64))
		bar = initBar(p, len(paths))
	}

	var failed int
	for _, path := range paths {
		if err := decodeOne(path, cfg, opts, dest, toStdout); err != nil {
			l.Error("%s: %s", path, err)
			failed++
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if p != nil {
		p.Wait()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d containers failed", failed, len(paths))
	}
	return nil
}

// decodeOne decodes the container at path and writes its report. A fatal
// decode error is returned before anything is written.
func decodeOne(path string, cfg *config.Config, opts *containers.Options, dest string, toStdout bool) error {
	c, err := containers.Open(appFs, path, opts)
	if err != nil {
		if kind := record.KindOf(err); kind != record.KindUnknown {
			return fmt.Errorf("%s: %w", kind, err)
		}
		return err
	}

	doc := report.Build(c, &report.Options{
		Location: cfg.Location,
		Filter:   cfg.Filter,
	})

	if toStdout {
		return report.WriteTo(stdout, doc, cfg.Format)
	}

	out, err := report.Write(appFs, dest, doc, cfg.Format)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: %s -> %s (%d records, %d flagged, %d failed)\n",
		path, c.Format, out, doc.Summary.Records, doc.Summary.Flagged, doc.Summary.Failed)
	return nil
}
