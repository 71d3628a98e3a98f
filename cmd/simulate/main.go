// Command simulate drives a crowd of scripted websocket clients against a
// running server: they join, spread over a few locals, play quiz rounds and
// exchange private messages, then a JSON summary is printed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "simulate",
		Usage: "exercise a running server with scripted websocket clients",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3001/ws", Usage: "websocket endpoint", Sources: cli.EnvVars("SIMULATE_URL")},
			&cli.IntFlag{Name: "bots", Value: 6, Usage: "number of clients"},
			&cli.IntFlag{Name: "locals", Value: 2, Usage: "number of locals to spread clients over"},
			&cli.IntFlag{Name: "rounds", Value: 3, Usage: "quiz rounds to play"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "overall time limit"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.TimeOnly}))

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			sim := Simulation{
				URL:    cmd.String("url"),
				Bots:   int(cmd.Int("bots")),
				Locals: int(cmd.Int("locals")),
				Rounds: int(cmd.Int("rounds")),
			}
			summary, err := sim.Run(ctx, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
