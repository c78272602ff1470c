package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/web-audit/internal/audit"
	"github.com/dtnitsch/web-audit/internal/history"
	"github.com/dtnitsch/web-audit/internal/serve"
)

func main() {
	logFlags := []cli.Flag{
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
	}
	configFlags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML config file", EnvVars: []string{"WEB_AUDIT_CONFIG"}},
		&cli.StringFlag{Name: "history-db", Usage: "SQLite file for audit history (empty disables history)"},
	}

	app := &cli.App{
		Name:  "web-audit",
		Usage: "audit a website's SEO, performance and conversion signals",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve.ServeAction,
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (default :8080)"},
				}, configFlags...), logFlags...),
			},
			{
				Name:      "audit",
				Usage:     "audit one URL and print the report",
				ArgsUsage: " ",
				Action:    audit.AuditAction,
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "site to audit", Required: true},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "deep", Usage: "fast or deep"},
					&cli.BoolFlag{Name: "force-refresh", Usage: "bypass the homepage cache"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "json or yaml"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the report to this file instead of stdout"},
				}, configFlags...), logFlags...),
			},
			{
				Name:   "history",
				Usage:  "list past audits",
				Action: history.HistoryAction,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "only audits of this site"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "maximum rows"},
				}, configFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
