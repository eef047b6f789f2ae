package main

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
containers decodes binary evidence containers: Safari and iOS
Cookies.binarycookies jars and SEGB event logs. The format is
detected from the file signature, bzip2 compressed copies are
unpacked on the fly.
`

const (
	DecodeDescription = `The decode command reads one or more containers and
writes a report for each of them. A single container without
--output is printed to stdout; otherwise reports are written to
<output>/<name>_output.<ext>. Records that cannot be decoded are
listed in the report, a container that is structurally broken
fails as a whole and makes the command exit with status 1.

Formats: json, text, netscape (cookie jars only), flat, sqlite.

Example:
        containers decode -f netscape Cookies.binarycookies
        containers decode -o ./reports --progress streams/*

`
	DetectDescription = `The detect command prints the format of each container
without decoding it.

Example:
        containers detect Cookies.binarycookies App.InFocus

`
)
