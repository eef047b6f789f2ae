package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var (
	version   = "dev"
	buildType = "source"
	date      = "unknown"
	commit    = "none"
)

func Execute(args []string) error {
	app := cli.App{
		Name:                  "containers",
		HelpName:              "containers",
		Usage:                 "Decodes cookie jars and SEGB logs into reports.",
		Version:               fmt.Sprintf("%s-%s", version, buildType),
		UsageText:             "containers <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          usageErrorCallback,
		Writer:                stdout,
		ErrWriter:             stderr,
		Commands: []cli.Command{
			{
				Name:                   "decode",
				Aliases:                []string{"d"},
				Usage:                  "decode containers into reports",
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           usageErrorCallback,
				Action:                 decode,
				Flags:                  decodeFlags,
				UseShortOptionHandling: true,
				Description:            DecodeDescription,
			},
			{
				Name:               "detect",
				Aliases:            []string{"i"},
				Usage:              "print the format of containers",
				Action:             detect,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DetectDescription,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of containers",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             getVersion,
			},
		},
		Action:                 decode,
		Flags:                  decodeFlags,
		UseShortOptionHandling: true,
		HideHelp:               true,
		HideVersion:            true,
	}
	return app.Run(args)
}

func main() {
	err := Execute(os.Args)
	if err != nil {
		fmt.Fprintf(stderr, "containers: %s\n", err.Error())
		os.Exit(1)
	}
}
