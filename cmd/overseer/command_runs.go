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

const runsUsage = `Usage:
  overseer runs list
  overseer runs add --model <id> --provider <id> [--prompt <text>]
  overseer runs switch <run-id>
  overseer runs select <run-id>
  overseer runs complete [--failed] [--duration-ms <n>] <run-id>
  overseer runs delete <run-id>
  overseer runs abort
`

func runRuns(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, runsUsage)
		return errors.New("runs requires a subcommand")
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
		return runsList(ctx, c)
	case "add":
		return runsAdd(ctx, c, args[1:])
	case "switch":
		return runsSwitch(ctx, c, args[1:])
	case "select":
		return runsSelect(ctx, c, args[1:])
	case "complete":
		return runsComplete(ctx, c, args[1:])
	case "delete":
		return runsDelete(ctx, c, args[1:])
	case "abort":
		return runsAbort(ctx, c)
	default:
		fmt.Fprint(os.Stderr, runsUsage)
		return fmt.Errorf("unknown runs subcommand: %s", args[0])
	}
}

func runsList(ctx context.Context, c *client.Client) error {
	resp, err := c.Comparison(ctx)
	if err != nil {
		return err
	}
	if resp.Comparison == nil {
		fmt.Fprintln(os.Stdout, "no active comparison")
		return nil
	}

	state := resp.Comparison
	fmt.Fprintf(os.Stdout, "phase: %s  baseline: %s\nprompt: %s\n\n", state.Phase, state.BaselineBranch, state.OriginalPrompt)
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tMODEL\tPROVIDER\tBRANCH\tACTIVE")
	for _, run := range state.Runs {
		active := ""
		if run.ID == state.ActiveRunID {
			active = "*"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n", run.ID, run.Status, run.ModelID, run.ProviderID, run.BranchName, active)
	}
	return writer.Flush()
}

func runsAdd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("runs add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	model := fs.String("model", "", "model id")
	provider := fs.String("provider", "", "provider id")
	prompt := fs.String("prompt", "", "comparison prompt (first run only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" || *provider == "" {
		return errors.New("runs add requires --model and --provider")
	}

	resp, err := c.AddComparisonRun(ctx, client.ComparisonRunRequest{
		Prompt:     *prompt,
		ModelID:    *model,
		ProviderID: *provider,
	})
	if err != nil {
		return err
	}
	if resp.Run != nil {
		fmt.Fprintln(os.Stdout, resp.Run.ID)
		return nil
	}
	if resp.Comparison != nil && len(resp.Comparison.Runs) > 0 {
		fmt.Fprintln(os.Stdout, resp.Comparison.Runs[0].ID)
	}
	return nil
}

func runsSwitch(ctx context.Context, c *client.Client, args []string) error {
	id, err := requireRunID("runs switch", args)
	if err != nil {
		return err
	}
	if err := c.SwitchComparisonRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runsSelect(ctx context.Context, c *client.Client, args []string) error {
	id, err := requireRunID("runs select", args)
	if err != nil {
		return err
	}
	if err := c.SelectComparisonRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runsComplete(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("runs complete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	failed := fs.Bool("failed", false, "mark the run as failed")
	durationMs := fs.Int64("duration-ms", 0, "build duration in milliseconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("runs complete requires a run id")
	}

	if err := c.CompleteComparisonRun(ctx, fs.Arg(0), client.CompleteRunRequest{
		Success:    !*failed,
		DurationMs: *durationMs,
	}); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runsDelete(ctx context.Context, c *client.Client, args []string) error {
	id, err := requireRunID("runs delete", args)
	if err != nil {
		return err
	}
	if err := c.DeleteComparisonRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runsAbort(ctx context.Context, c *client.Client) error {
	if err := c.AbortComparison(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func requireRunID(label string, args []string) (string, error) {
	fs := flag.NewFlagSet(label, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		return "", fmt.Errorf("%s requires a run id", label)
	}
	return fs.Arg(0), nil
}
