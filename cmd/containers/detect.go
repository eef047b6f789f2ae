package main

import (
	"errors"
	"fmt"

	"github.com/omencyber/containers"
	"github.com/urfave/cli"
)

func detect(ctx *cli.Context) error {
	paths := ctx.Args()
	if len(paths) == 0 {
		return printErrWithCmdHelp(
			ctx,
			errors.New("no container path provided"),
		)
	}

	var failed int
	for _, path := range paths {
		format, compressed, err := containers.DetectFile(appFs, path, nil)
		if err != nil {
			printRuntimeErr(ctx, "detect", "detect_file", err)
			failed++
			continue
		}
		if compressed {
			fmt.Fprintf(stdout, "%s: %s (bzip2)\n", path, format)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s\n", path, format)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d containers not recognised", failed, len(paths))
	}
	return nil
}
