package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/sonnes/logsink/compact"
	"github.com/sonnes/logsink/console"
	"github.com/sonnes/logsink/core"
	"github.com/sonnes/logsink/redact"
	"github.com/sonnes/logsink/server"
	"github.com/sonnes/logsink/session"
	"github.com/urfave/cli/v3"
)

const usage = "Usage: logsink <ip> <port>"

var errUsage = errors.New(usage)

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-body",
			Usage: "Maximum chunk body size in bytes",
			Value: server.DefaultMaxBodyBytes,
		},
		&cli.DurationFlag{
			Name:  "idle-timeout",
			Usage: "Remove sessions idle for this long (0 keeps them forever)",
		},
		&cli.StringSliceFlag{
			Name:  "redact",
			Usage: "Mask received lines before printing: secrets, pii (repeatable)",
		},
		&cli.IntFlag{
			Name:  "compact",
			Usage: "Print at most this many lines per chunk (0 prints all)",
		},
		&cli.IntFlag{
			Name:  "max-line-width",
			Usage: "Truncate printed lines to this many characters (0 disables)",
		},
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	host, port, err := parseAddress(cmd.Args().Slice())
	if err != nil {
		if errors.Is(err, errUsage) {
			return cli.Exit(usage, 1)
		}
		return cli.Exit(fmt.Sprintf("%v\n%s", err, usage), 1)
	}

	transformers, err := buildTransformers(
		cmd.StringSlice("redact"),
		int(cmd.Int("compact")),
		int(cmd.Int("max-line-width")),
	)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	printer := console.New(os.Stdout)
	printer.Plain = !term.IsTerminal(os.Stdout.Fd())

	srv := server.New(session.NewTable(), printer, server.BaseURL(host, ln))
	srv.Logger = log.Default()
	srv.Transformers = transformers
	srv.MaxBodyBytes = int64(cmd.Int("max-body"))
	srv.IdleTimeout = cmd.Duration("idle-timeout")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, ln)
}

// parseAddress validates the two positional values: bind address and port.
func parseAddress(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, errUsage
	}
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", args[1])
	}
	return args[0], port, nil
}

// buildTransformers assembles the console transformers from CLI flags.
// Redaction runs first so compaction never hides a secret's replacement.
func buildTransformers(redactRules []string, maxLines, maxWidth int) ([]core.Transformer, error) {
	var transformers []core.Transformer

	cfg, err := redact.ParseConfig(redactRules)
	if err != nil {
		return nil, err
	}
	if cfg.Enabled() {
		transformers = append(transformers, redact.New(cfg))
	}

	if maxLines > 0 || maxWidth > 0 {
		transformers = append(transformers, compact.New(compact.Config{
			MaxLines:     maxLines,
			MaxLineWidth: maxWidth,
		}))
	}
	return transformers, nil
}
