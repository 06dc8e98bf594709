package ui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"overseer/internal/client"
	"overseer/internal/types"
)

type connectedMsg struct {
	events <-chan types.StreamEvent
	cancel func()
	err    error
}

type streamEventMsg struct {
	event types.StreamEvent
}

type streamClosedMsg struct{}

type statusMsg struct {
	dev        *types.DevServerState
	pending    []*types.Confirmation
	comparison *types.ComparisonState
	err        error
}

type pollTickMsg time.Time

type copiedMsg struct {
	err error
}

type resolvedMsg struct {
	err error
}

func connectStream(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		events, cancel, err := c.StreamEvents(context.Background(), true)
		return connectedMsg{events: events, cancel: cancel, err: err}
	}
}

func waitEvent(events <-chan types.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{event: event}
	}
}

func fetchStatus(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		dev, err := c.DevServerState(ctx)
		if err != nil {
			return statusMsg{err: err}
		}
		confirmations, err := c.PendingConfirmations(ctx)
		if err != nil {
			return statusMsg{dev: dev, err: err}
		}
		comparison, err := c.Comparison(ctx)
		if err != nil {
			return statusMsg{dev: dev, pending: confirmations.Confirmations, err: err}
		}
		return statusMsg{
			dev:        dev,
			pending:    confirmations.Confirmations,
			comparison: comparison.Comparison,
		}
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func resolveConfirmation(c *client.Client, id string, approved bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, err := c.ResolveConfirmation(ctx, id, approved)
		return resolvedMsg{err: err}
	}
}

func copyToClipboard(content string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(content)}
	}
}
