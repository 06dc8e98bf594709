package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"overseer/internal/client"
	"overseer/internal/types"
)

const appUsage = `Usage:
  overseer app status
  overseer app start
  overseer app stop
  overseer app restart
  overseer app logs [--follow]
`

func runApp(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, appUsage)
		return errors.New("app requires a subcommand")
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureDaemon(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "status":
		state, err := c.DevServerState(ctx)
		if err != nil {
			return err
		}
		printDevServerState(state)
		return nil
	case "start":
		state, err := c.StartDevServer(ctx)
		if err != nil {
			return err
		}
		printDevServerState(state)
		return nil
	case "stop":
		if err := c.StopDevServer(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "ok")
		return nil
	case "restart":
		state, err := c.RestartDevServer(ctx)
		if err != nil {
			return err
		}
		printDevServerState(state)
		return nil
	case "logs":
		return appLogs(ctx, c, args[1:])
	default:
		fmt.Fprint(os.Stderr, appUsage)
		return fmt.Errorf("unknown app subcommand: %s", args[0])
	}
}

func printDevServerState(state *types.DevServerState) {
	fmt.Fprintf(os.Stdout, "status: %s\n", state.Status)
	if state.PID > 0 {
		fmt.Fprintf(os.Stdout, "pid: %d\n", state.PID)
	}
	if state.Port > 0 {
		fmt.Fprintf(os.Stdout, "port: %d\n", state.Port)
	}
	if state.RestartCount > 0 {
		fmt.Fprintf(os.Stdout, "restarts: %d\n", state.RestartCount)
	}
	if state.LastError != "" {
		fmt.Fprintf(os.Stdout, "last error: %s\n", state.LastError)
	}
}

func appLogs(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("app logs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	follow := fs.Bool("follow", false, "stream new log lines as they arrive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*follow {
		lines, err := c.DevServerLogs(ctx)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(os.Stdout, line.Line)
		}
		return nil
	}

	lines, cancel, err := c.FollowDevServerLogs(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	for line := range lines {
		fmt.Fprintln(os.Stdout, line.Line)
	}
	return nil
}
