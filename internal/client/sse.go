package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"overseer/internal/types"
)

// StreamEvents subscribes to the daemon's event bus over SSE. With
// reconnect set, the current stream's buffered events are replayed
// before live ones. The channel closes when the connection drops or the
// returned cancel func is called.
func (c *Client) StreamEvents(ctx context.Context, reconnect bool) (<-chan types.StreamEvent, func(), error) {
	url := c.baseURL + "/api/stream"
	if reconnect {
		url += "?reconnect=1"
	}
	body, cancel, err := c.openSSE(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan types.StreamEvent, 256)
	go func() {
		defer close(ch)
		defer cancel()
		scanSSE(body, func(payload []byte) bool {
			var event types.StreamEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return true
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return false
			}
			return true
		})
	}()
	return ch, cancel, nil
}

// FollowDevServerLogs streams the dev server's recent log buffer
// followed by live output lines.
func (c *Client) FollowDevServerLogs(ctx context.Context) (<-chan LogLine, func(), error) {
	body, cancel, err := c.openSSE(ctx, c.baseURL+"/api/devserver/logs?follow=1")
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan LogLine, 256)
	go func() {
		defer close(ch)
		defer cancel()
		scanSSE(body, func(payload []byte) bool {
			var line LogLine
			if err := json.Unmarshal(payload, &line); err != nil {
				return true
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				return false
			}
			return true
		})
	}()
	return ch, cancel, nil
}

func (c *Client) openSSE(ctx context.Context, url string) (*http.Response, func(), error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancelCtx()
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No timeout: the stream stays open until cancelled.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		cancelCtx()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancelCtx()
		return nil, nil, decodeAPIError(resp)
	}

	cancel := func() {
		cancelCtx()
		_ = resp.Body.Close()
	}
	return resp, cancel, nil
}

// scanSSE decodes `data:` frames and hands each payload to fn until the
// body ends or fn returns false.
func scanSSE(resp *http.Response, fn func(payload []byte) bool) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(dataLines) == 0 {
				continue
			}
			payload := strings.Join(dataLines, "\n")
			dataLines = dataLines[:0]
			if !fn([]byte(payload)) {
				return
			}
			continue
		}
		if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
	}
}
