package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}

	health, err := c.Health(ctx)
	if err != nil {
		if isDaemonUnavailable(err) {
			fmt.Fprintln(os.Stdout, "daemon: not running")
			return nil
		}
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	uptime := (time.Duration(health.UptimeMs) * time.Millisecond).Truncate(time.Second)
	fmt.Fprintf(writer, "daemon\trunning (pid %d, version %s, up %s)\n", health.PID, health.Version, uptime)

	if active, err := c.StreamActive(ctx); err == nil {
		state := "idle"
		if active {
			state = "streaming"
		}
		fmt.Fprintf(writer, "stream\t%s\n", state)
	}

	if state, err := c.DevServerState(ctx); err == nil {
		line := string(state.Status)
		if state.PID > 0 {
			line = fmt.Sprintf("%s (pid %d, port %d)", state.Status, state.PID, state.Port)
		}
		if state.LastError != "" {
			line += " last_error=" + state.LastError
		}
		fmt.Fprintf(writer, "app\t%s\n", line)
	}

	if resp, err := c.Comparison(ctx); err == nil {
		if resp.Comparison == nil {
			fmt.Fprintf(writer, "comparison\tnone\n")
		} else {
			fmt.Fprintf(writer, "comparison\t%s (%d runs, active %s)\n",
				resp.Comparison.Phase, len(resp.Comparison.Runs), resp.Comparison.ActiveRunID)
		}
	}

	if resp, err := c.PendingConfirmations(ctx); err == nil {
		fmt.Fprintf(writer, "confirmations\t%d pending\n", len(resp.Confirmations))
	}

	return writer.Flush()
}
