package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vivero-po/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "pedidos",
		Usage: "Weekly purchase orders for the garden store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "planning",
				Usage:   "Planning rules file (yaml, json or toml)",
				EnvVars: []string{"APP_PLANNING_FILE"},
			},
			&cli.StringFlag{
				Name:    "input",
				Usage:   "Directory containing the input files",
				EnvVars: []string{"APP_INPUT_DIR"},
			},
			&cli.StringFlag{
				Name:    "output",
				Usage:   "Directory receiving the order files",
				EnvVars: []string{"APP_OUTPUT_DIR"},
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Also write the log to this file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Compute and write the orders of a week",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "week",
						Usage: "ISO week to process, defaults to the week after the last processed one",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Process the week even if it is out of sequence",
					},
					&cli.BoolFlag{
						Name:  "no-correction",
						Usage: "Keep the theoretical orders, ignore real stock and sales",
					},
					&cli.BoolFlag{
						Name:  "fetch-drive",
						Usage: "Download the input files from Google Drive first",
					},
					&cli.BoolFlag{
						Name:  "upload",
						Usage: "Upload the generated files to object storage",
					},
					&cli.StringFlag{
						Name:    "format",
						Usage:   "Order file format: complete or order",
						EnvVars: []string{"APP_REPORT_FORMAT"},
					},
				},
				Before: openApp,
				After:  closeApp,
				Action: runWeek,
			},
			{
				Name:  "status",
				Usage: "Show the accumulated state and the last runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to list",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the status as JSON",
					},
				},
				Before: openApp,
				After:  closeApp,
				Action: showStatus,
			},
			{
				Name:  "reset",
				Usage: "Delete the accumulated stock and the run history",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the reset",
					},
				},
				Before: openApp,
				After:  closeApp,
				Action: resetState,
			},
			{
				Name:  "classify",
				Usage: "Build the ABC classification of a section from a sales file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "section",
						Usage:    "Section to classify",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "sales",
						Usage:    "Sales file of the current period",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prior",
						Usage: "Sales file of the prior period, for the variation column",
					},
				},
				Action: classify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("pedidos failed")
		_ = logger.Close()
		os.Exit(1)
	}
}
