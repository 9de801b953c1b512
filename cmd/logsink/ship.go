package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/sonnes/logsink/shipper"
	"github.com/urfave/cli/v3"
)

func shipCmd() *cli.Command {
	return &cli.Command{
		Name:  "ship",
		Usage: "Send stdin line by line to a logsink receiver",
		Description: `Opens a session on the receiver, posts stdin in batches, and sends the
done marker at EOF. Failed requests are retried with exponential backoff;
client errors such as a bad sequence stop the upload.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Aliases:  []string{"u"},
				Usage:    "Session collection URL, e.g. http://127.0.0.1:8080/sessions",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Maximum lines per chunk",
				Value: shipper.DefaultBatchLines,
			},
			&cli.DurationFlag{
				Name:  "flush",
				Usage: "Send a partial batch after this long",
				Value: shipper.DefaultFlushInterval,
			},
			&cli.DurationFlag{
				Name:  "max-elapsed",
				Usage: "Give up retrying a single request after this long",
				Value: shipper.DefaultMaxElapsed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := shipper.New(shipper.Config{
				URL:           cmd.String("url"),
				BatchLines:    int(cmd.Int("batch")),
				FlushInterval: cmd.Duration("flush"),
				MaxElapsed:    cmd.Duration("max-elapsed"),
			})
			c.Logger = log.Default()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Ship(ctx, os.Stdin)
		},
	}
}
