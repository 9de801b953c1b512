package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:      "logsink",
		Usage:     "Receive sequenced log chunks over HTTP and print them to the console",
		ArgsUsage: "<ip> <port>",
		Description: `Runs a disposable in-memory receiver for log-shipping clients.

Create a session with POST /sessions, then POST chunks of the form
{"lines": [...]} to the returned URL, following each "continue" URL,
and finish with {"done": true}.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		}, serveFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Action: serveAction,
		Commands: []*cli.Command{
			shipCmd(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
