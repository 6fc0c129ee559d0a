package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "tradebot"
	app.Usage = "Telegram bot that keeps a ledger of manual stock trades"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "./configs",
			Usage: "directory containing config.yml",
		},
	}

	app.Commands = []cli.Command{
		serveCMD,
		setWebhookCMD,
		deleteWebhookCMD,
		execCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the webhook server",
		Action:      serveAction,
		Description: `Serve Telegram webhook updates and the read-only trade API until SIGINT/SIGTERM.`,
	}
	setWebhookCMD = cli.Command{
		Name:   "set-webhook",
		Usage:  "register the webhook URL with Telegram",
		Action: setWebhookAction,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "url",
				Usage: "public webhook URL (defaults to telegram.webhook_url)",
			},
		},
	}
	deleteWebhookCMD = cli.Command{
		Name:   "delete-webhook",
		Usage:  "remove the webhook registration",
		Action: deleteWebhookAction,
	}
	execCMD = cli.Command{
		Name:        "exec",
		Usage:       "run one bot command against the local ledger",
		ArgsUsage:   "<command> [args...]",
		Action:      execAction,
		Description: `Example: tradebot exec buy AAPL 150.50`,
	}
)
