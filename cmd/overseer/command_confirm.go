package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"overseer/internal/client"
)

const confirmUsage = `Usage:
  overseer confirm list
  overseer confirm approve <id|all>
  overseer confirm reject <id|all>
  overseer confirm auto [--off] <shell|file>
`

func runConfirm(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, confirmUsage)
		return errors.New("confirm requires a subcommand")
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
	case "list":
		return confirmList(ctx, c)
	case "approve":
		return confirmResolve(ctx, c, args[1:], true)
	case "reject":
		return confirmResolve(ctx, c, args[1:], false)
	case "auto":
		return confirmAuto(ctx, c, args[1:])
	default:
		fmt.Fprint(os.Stderr, confirmUsage)
		return fmt.Errorf("unknown confirm subcommand: %s", args[0])
	}
}

func confirmList(ctx context.Context, c *client.Client) error {
	resp, err := c.PendingConfirmations(ctx)
	if err != nil {
		return err
	}
	if len(resp.Confirmations) == 0 {
		fmt.Fprintln(os.Stdout, "no pending confirmations")
	} else {
		writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tCATEGORY\tTOOL\tINPUT")
		for _, confirmation := range resp.Confirmations {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", confirmation.ID, confirmation.Category, confirmation.ToolName, confirmation.Input)
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stdout, "auto-approve: shell=%t file=%t\n", resp.AutoApprove["shell"], resp.AutoApprove["file"])
	return nil
}

func confirmResolve(ctx context.Context, c *client.Client, args []string, approved bool) error {
	if len(args) < 1 {
		return errors.New("confirm approve/reject requires an id or \"all\"")
	}
	if args[0] == "all" {
		var err error
		if approved {
			err = c.ApproveAllConfirmations(ctx)
		} else {
			err = c.RejectAllConfirmations(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "ok")
		return nil
	}

	found, err := c.ResolveConfirmation(ctx, args[0], approved)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no pending confirmation with id %s", args[0])
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func confirmAuto(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("confirm auto", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	off := fs.Bool("off", false, "disable auto-approval for the category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("confirm auto requires a category (shell or file)")
	}

	if err := c.SetAutoApprove(ctx, fs.Arg(0), !*off); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}
