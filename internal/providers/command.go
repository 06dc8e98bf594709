package providers

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"overseer/internal/types"
)

// commandProvider shells out to an agent CLI binary, passing the latest
// user message as the prompt and streaming stdout lines back as delta
// events. Stateful-external backends replay their own history, so only
// the newest user turn is forwarded.
type commandProvider struct {
	descriptor Descriptor
}

func newCommandProvider(d Descriptor) *commandProvider {
	return &commandProvider{descriptor: d}
}

func (p *commandProvider) ID() string {
	return p.descriptor.ID
}

func (p *commandProvider) Stream(ctx context.Context, sink EventSink, messages []types.Message, opts StreamOptions) ([]types.Message, error) {
	prompt := latestUserContent(messages)
	if prompt == "" {
		return nil, fmt.Errorf("no user message to send")
	}

	args := []string{"-p", prompt}
	if opts.ModelID != "" {
		args = append(args, "--model", opts.ModelID)
	}
	cmd := exec.CommandContext(ctx, p.descriptor.Command, args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout // interleave; the CLI's stderr is part of the transcript
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var output strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		output.WriteString(line)
		output.WriteByte('\n')
		sink.Emit(types.StreamEvent{
			Type:      types.EventTypeDelta,
			Delta:     line + "\n",
			CreatedAt: time.Now().UTC(),
		})
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, fmt.Errorf("%s exited: %w", p.descriptor.Command, waitErr)
	}

	content := strings.TrimRight(output.String(), "\n")
	if content == "" {
		return nil, nil
	}
	response := types.AssistantMessage(content)
	sink.Emit(types.StreamEvent{
		Type:      types.EventTypeMessage,
		Message:   &response,
		CreatedAt: time.Now().UTC(),
	})
	return []types.Message{response}, nil
}

func latestUserContent(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
