package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"overseer/internal/client"
	"overseer/internal/types"
	"overseer/internal/ui"
)

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	model := fs.String("model", "", "model id (defaults to the provider's default)")
	provider := fs.String("provider", "", "provider id")
	contextText := fs.String("context", "", "extra context prepended to the prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("chat requires a prompt")
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureDaemon(ctx); err != nil {
		return err
	}

	if _, err := c.SubmitChat(ctx, client.ChatRequest{
		Prompt:     prompt,
		Context:    *contextText,
		ModelID:    *model,
		ProviderID: *provider,
	}); err != nil {
		return err
	}
	// Reconnect mode replays from the start of the stream, so events
	// emitted between submit and attach are not lost.
	return followStream(ctx, c, true)
}

func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	reconnect := fs.Bool("reconnect", true, "replay the current stream from its start")
	render := fs.Bool("render", false, "render the assistant reply as markdown once the stream ends")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureDaemon(ctx); err != nil {
		return err
	}
	if *render {
		return followStreamRendered(ctx, c, *reconnect)
	}
	return followStream(ctx, c, *reconnect)
}

func followStream(ctx context.Context, c *client.Client, reconnect bool) error {
	events, cancel, err := c.StreamEvents(ctx, reconnect)
	if err != nil {
		return err
	}
	defer cancel()

	for event := range events {
		if !printStreamEvent(os.Stdout, event) {
			return nil
		}
	}
	return nil
}

// followStreamRendered buffers the assistant text and prints it through
// the markdown renderer after the terminal event; tool and error events
// still print as they arrive.
func followStreamRendered(ctx context.Context, c *client.Client, reconnect bool) error {
	events, cancel, err := c.StreamEvents(ctx, reconnect)
	if err != nil {
		return err
	}
	defer cancel()

	var reply strings.Builder
	for event := range events {
		switch event.Type {
		case types.EventTypeDelta:
			reply.WriteString(event.Delta)
		case types.EventTypeMessage:
			if event.Message != nil {
				reply.WriteString(event.Message.Content)
			}
		case types.EventTypeEnd:
			fmt.Fprint(os.Stdout, ui.RenderMarkdown(reply.String(), 100))
			return nil
		default:
			printStreamEvent(os.Stdout, event)
		}
	}
	return nil
}

// printStreamEvent renders one event and reports whether the stream is
// still open.
func printStreamEvent(w io.Writer, event types.StreamEvent) bool {
	switch event.Type {
	case types.EventTypeDelta:
		fmt.Fprint(w, event.Delta)
	case types.EventTypeMessage:
		if event.Message != nil && event.Message.Content != "" {
			fmt.Fprintln(w, event.Message.Content)
		}
	case types.EventTypeToolCall:
		fmt.Fprintf(w, "\n[tool] %s %s\n", event.ToolName, event.ToolArgs)
	case types.EventTypeToolResult:
		result := strings.TrimSpace(event.ToolResult)
		if result != "" {
			fmt.Fprintf(w, "[tool result] %s\n", result)
		}
	case types.EventTypeError:
		fmt.Fprintf(w, "\nerror: %s\n", event.Error)
	case types.EventTypeEnd:
		fmt.Fprintln(w)
		return false
	}
	return true
}

func runAbort(args []string) error {
	fs := flag.NewFlagSet("abort", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.AbortStream(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	clear := fs.Bool("clear", false, "clear the conversation history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureDaemon(ctx); err != nil {
		return err
	}

	if *clear {
		if err := c.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "ok")
		return nil
	}

	resp, err := c.History(ctx)
	if err != nil {
		return err
	}
	if resp.ModelID != "" {
		fmt.Fprintf(os.Stdout, "# %s via %s\n\n", resp.ModelID, resp.ProviderID)
	}
	for _, message := range resp.Messages {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", message.Role, message.Content)
		for _, call := range message.ToolCalls {
			fmt.Fprintf(os.Stdout, "  [tool] %s %s\n", call.Name, call.Args)
		}
	}
	return nil
}
