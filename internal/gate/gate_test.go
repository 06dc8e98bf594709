package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"overseer/internal/logging"
	"overseer/internal/types"
)

func newTestGate() *Gate {
	return New(logging.Nop())
}

func confirmation(id string, category types.ToolCategory) *types.Confirmation {
	return &types.Confirmation{ID: id, ToolName: "run_command", Category: category}
}

func TestResolveApproves(t *testing.T) {
	g := newTestGate()
	ch := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)

	require.True(t, g.Resolve("c1", true))
	select {
	case approved := <-ch:
		require.True(t, approved)
	case <-time.After(time.Second):
		t.Fatal("decision not delivered")
	}
	require.Empty(t, g.Pending())
}

func TestTimeoutRejectsAndRemovesEntry(t *testing.T) {
	g := newTestGate()
	ch := g.Request(confirmation("c1", types.ToolCategoryShell), time.Millisecond)

	select {
	case approved := <-ch:
		require.False(t, approved)
	case <-time.After(time.Second):
		t.Fatal("timeout decision not delivered")
	}
	// The id is gone after the timeout; a later resolve is a no-op.
	require.False(t, g.Resolve("c1", true))
}

func TestRejectAllAndApproveAll(t *testing.T) {
	g := newTestGate()
	ch1 := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)
	ch2 := g.Request(confirmation("c2", types.ToolCategoryFile), time.Minute)

	g.RejectAll()
	require.False(t, <-ch1)
	require.False(t, <-ch2)
	require.Empty(t, g.Pending())

	ch3 := g.Request(confirmation("c3", types.ToolCategoryFile), time.Minute)
	g.ApproveAll()
	require.True(t, <-ch3)
}

func TestAutoApproveCategory(t *testing.T) {
	g := newTestGate()
	pendingCh := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)

	g.SetAutoApprove(types.ToolCategoryShell, true)
	// Enabling the flag approves the already-pending entry.
	require.True(t, <-pendingCh)

	// New requests in the category resolve immediately.
	ch := g.Request(confirmation("c2", types.ToolCategoryShell), time.Minute)
	select {
	case approved := <-ch:
		require.True(t, approved)
	default:
		t.Fatal("expected immediate auto-approval")
	}

	// Other categories still wait.
	fileCh := g.Request(confirmation("c3", types.ToolCategoryFile), time.Minute)
	select {
	case <-fileCh:
		t.Fatal("file category should not be auto-approved")
	default:
	}
	g.RejectAll()
}

func TestResetClearsFlagsAndPending(t *testing.T) {
	g := newTestGate()
	g.SetAutoApprove(types.ToolCategoryFile, true)
	ch := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)

	g.Reset()
	require.False(t, <-ch)
	require.False(t, g.AutoApproved(types.ToolCategoryFile))
}

func TestAwaitContextCancellation(t *testing.T) {
	g := newTestGate()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- g.Await(ctx, confirmation("c1", types.ToolCategoryShell), time.Minute)
	}()

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case approved := <-done:
		require.False(t, approved)
	case <-time.After(time.Second):
		t.Fatal("await did not return on cancellation")
	}
	require.Empty(t, g.Pending())
}

func TestDuplicateIDRejectsPrior(t *testing.T) {
	g := newTestGate()
	first := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)
	second := g.Request(confirmation("c1", types.ToolCategoryShell), time.Minute)

	require.False(t, <-first)
	require.True(t, g.Resolve("c1", true))
	require.True(t, <-second)
}

func TestElapsedTimeoutRejectsImmediately(t *testing.T) {
	g := newTestGate()
	ch := g.Request(confirmation("c1", types.ToolCategoryShell), 0)
	require.False(t, <-ch)
	// Never registered: the id is unknown to a later resolve.
	require.False(t, g.Resolve("c1", true))
	require.Empty(t, g.Pending())
}
