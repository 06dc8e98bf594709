// Package comparison runs the same prompt against multiple model and
// provider pairings, one git branch per candidate run, and lets the user
// keep exactly one result. Finalize and abort are best effort: each
// cleanup step is independently guarded so the repository always lands
// in some consistent, non-comparison state.
package comparison

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"overseer/internal/logging"
	"overseer/internal/types"
)

const branchNameAttempts = 5

// Store is the persistence surface for the singleton comparison
// document.
type Store interface {
	Load() (*types.ComparisonState, bool, error)
	Save(state *types.ComparisonState) error
	Clear() error
}

type RunStats struct {
	DurationMs int64
	TokenUsage *types.TokenUsage
}

type Orchestrator struct {
	mu           sync.Mutex
	dir          string
	store        Store
	state        *types.ComparisonState
	maxRuns      int
	branchPrefix string
	onRunSwitch  func()
	logger       logging.Logger
}

type Options struct {
	Dir          string
	Store        Store
	MaxRuns      int
	BranchPrefix string
	// OnRunSwitch is invoked whenever the active run changes; the daemon
	// uses it to reset the session and the confirmation gate.
	OnRunSwitch func()
	Logger      logging.Logger
}

func New(opts Options) *Orchestrator {
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = 5
	}
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = "overseer/run-"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.OnRunSwitch == nil {
		opts.OnRunSwitch = func() {}
	}
	return &Orchestrator{
		dir:          opts.Dir,
		store:        opts.Store,
		maxRuns:      opts.MaxRuns,
		branchPrefix: opts.BranchPrefix,
		onRunSwitch:  opts.OnRunSwitch,
		logger:       opts.Logger,
	}
}

// State returns a deep copy of the current comparison state, or nil when
// no comparison is in progress.
func (o *Orchestrator) State() *types.ComparisonState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneState(o.state)
}

// Init starts a comparison session: captures the baseline, cuts the
// first run's branch, and persists the document.
func (o *Orchestrator) Init(prompt, modelID, modelLabel, providerID, providerLabel string) (*types.ComparisonState, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != nil {
		return nil, errors.New("comparison already in progress")
	}

	baselineRef, err := headRef(o.dir)
	if err != nil {
		return nil, err
	}
	baselineBranch, err := currentBranch(o.dir)
	if err != nil {
		return nil, err
	}

	// The document exists before the first branch does, so a crash in
	// between leaves an initial-phase record that Resume discards.
	state := &types.ComparisonState{
		Phase:          types.ComparisonPhaseInitial,
		BaselineRef:    baselineRef,
		BaselineBranch: baselineBranch,
		OriginalPrompt: prompt,
	}
	if err := o.store.Save(state); err != nil {
		return nil, err
	}

	run := newRun(o.branchPrefix, prompt, modelID, modelLabel, providerID, providerLabel)
	if err := o.materializeBranch(run.BranchName, baselineRef); err != nil {
		if clearErr := o.store.Clear(); clearErr != nil {
			o.logger.Warn("comparison_init_clear_failed", logging.F("error", clearErr))
		}
		return nil, err
	}

	state.Phase = types.ComparisonPhaseBuilding
	state.Runs = []*types.ComparisonRun{run}
	state.ActiveRunID = run.ID
	if err := o.store.Save(state); err != nil {
		return nil, err
	}
	o.state = state
	o.onRunSwitch()
	o.logger.Info("comparison_init",
		logging.F("run_id", run.ID),
		logging.F("branch", run.BranchName),
		logging.F("baseline", baselineRef),
	)
	return cloneState(state), nil
}

// materializeBranch creates branch at ref and checks it out, tolerating
// debris from a previously crashed run: first try a fresh branch, then
// checking out the existing one, then force-recreating it.
func (o *Orchestrator) materializeBranch(branch, ref string) error {
	if err := createBranchAt(o.dir, branch, ref); err == nil {
		return nil
	}
	if err := checkout(o.dir, branch); err == nil {
		return nil
	}
	if err := deleteBranch(o.dir, branch); err != nil {
		o.logger.Warn("comparison_branch_delete_failed", logging.F("branch", branch), logging.F("error", err))
	}
	return createBranchAt(o.dir, branch, ref)
}

// CreateRun adds another candidate run, cut from the same baseline as
// every other run so each candidate starts from identical state.
func (o *Orchestrator) CreateRun(modelID, modelLabel, providerID, providerLabel string) (*types.ComparisonRun, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return nil, errors.New("no comparison in progress")
	}
	if len(o.state.Runs) >= o.maxRuns {
		return nil, fmt.Errorf("run limit reached (%d)", o.maxRuns)
	}
	if building := o.state.BuildingRun(); building != nil {
		return nil, fmt.Errorf("run %s is still building", building.ID)
	}

	// Preserve whatever the active branch holds before leaving it.
	if err := commitAll(o.dir, "checkpoint before new run"); err != nil {
		o.logger.Warn("comparison_checkpoint_failed", logging.F("error", err))
	}

	run := newRun(o.branchPrefix, o.state.OriginalPrompt, modelID, modelLabel, providerID, providerLabel)
	for attempt := 0; branchExists(o.dir, run.BranchName); attempt++ {
		if attempt >= branchNameAttempts {
			return nil, fmt.Errorf("could not allocate a unique branch name under %s", o.branchPrefix)
		}
		run.BranchName = o.branchPrefix + shortID()
	}
	if err := createBranchAt(o.dir, run.BranchName, o.state.BaselineRef); err != nil {
		return nil, err
	}

	o.state.Runs = append(o.state.Runs, run)
	o.state.ActiveRunID = run.ID
	o.state.Phase = types.ComparisonPhaseBuilding
	if err := o.store.Save(o.state); err != nil {
		return nil, err
	}
	o.onRunSwitch()
	o.logger.Info("comparison_run_created",
		logging.F("run_id", run.ID),
		logging.F("branch", run.BranchName),
	)
	clone := *run
	return &clone, nil
}

// SwitchRun checks out another run's branch. Disallowed while the
// current or the target run is building: a checkout mid-build would
// corrupt in-flight edits.
func (o *Orchestrator) SwitchRun(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return errors.New("no comparison in progress")
	}
	target := o.state.Run(id)
	if target == nil {
		return fmt.Errorf("run %s not found", id)
	}
	if target.ID == o.state.ActiveRunID {
		return nil
	}
	if building := o.state.BuildingRun(); building != nil {
		return fmt.Errorf("run %s is still building", building.ID)
	}
	return o.switchToLocked(target)
}

func (o *Orchestrator) switchToLocked(target *types.ComparisonRun) error {
	if err := commitAll(o.dir, "checkpoint before switch"); err != nil {
		o.logger.Warn("comparison_checkpoint_failed", logging.F("error", err))
	}
	if err := checkout(o.dir, target.BranchName); err != nil {
		return err
	}
	o.state.ActiveRunID = target.ID
	if err := o.store.Save(o.state); err != nil {
		return err
	}
	o.onRunSwitch()
	o.logger.Info("comparison_run_switched", logging.F("run_id", target.ID))
	return nil
}

// MarkComplete records a run's outcome and moves the session into the
// comparing phase.
func (o *Orchestrator) MarkComplete(id string, success bool, stats RunStats) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return errors.New("no comparison in progress")
	}
	run := o.state.Run(id)
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	if err := commitAll(o.dir, "run "+run.ID+" output"); err != nil {
		o.logger.Warn("comparison_commit_failed", logging.F("run_id", run.ID), logging.F("error", err))
	}

	if success {
		run.Status = types.RunStatusSuccess
	} else {
		run.Status = types.RunStatusFailed
	}
	run.DurationMs = stats.DurationMs
	run.TokenUsage = stats.TokenUsage
	o.state.Phase = types.ComparisonPhaseComparing
	if err := o.store.Save(o.state); err != nil {
		return err
	}
	o.logger.Info("comparison_run_complete",
		logging.F("run_id", run.ID),
		logging.F("status", string(run.Status)),
	)
	return nil
}

// SelectRun finalizes the comparison by merging the winning branch into
// the baseline line and discarding everything else. Every step is
// individually guarded; a failed merge still ends with the branches and
// the persisted document gone.
func (o *Orchestrator) SelectRun(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return errors.New("no comparison in progress")
	}
	winner := o.state.Run(id)
	if winner == nil {
		return fmt.Errorf("run %s not found", id)
	}

	if err := commitAll(o.dir, "final "+winner.ID+" output"); err != nil {
		o.logger.Warn("comparison_commit_failed", logging.F("error", err))
	}

	if err := checkout(o.dir, o.state.BaselineBranch); err != nil {
		o.logger.Warn("comparison_baseline_checkout_failed", logging.F("error", err))
		if err := forceCheckout(o.dir, o.state.BaselineBranch); err != nil {
			o.logger.Warn("comparison_baseline_force_checkout_failed", logging.F("error", err))
		}
	}

	if err := mergePreferring(o.dir, winner.BranchName); err != nil {
		o.logger.Warn("comparison_merge_failed", logging.F("error", err))
		mergeAbort(o.dir)
		if err := overlayBranch(o.dir, winner.BranchName); err != nil {
			o.logger.Warn("comparison_overlay_failed", logging.F("error", err))
		}
	}

	o.cleanupLocked()
	o.logger.Info("comparison_finalized", logging.F("winner", winner.ID))
	return nil
}

// Abort discards the whole comparison without merging anything.
func (o *Orchestrator) Abort() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return nil
	}
	if err := forceCheckout(o.dir, o.state.BaselineBranch); err != nil {
		o.logger.Warn("comparison_baseline_checkout_failed", logging.F("error", err))
	}
	o.cleanupLocked()
	o.logger.Info("comparison_aborted")
	return nil
}

// cleanupLocked removes every comparison branch and the persisted
// document. Failures are logged and deliberately not propagated.
func (o *Orchestrator) cleanupLocked() {
	for _, run := range o.state.Runs {
		if err := deleteBranch(o.dir, run.BranchName); err != nil {
			o.logger.Warn("comparison_branch_delete_failed",
				logging.F("branch", run.BranchName),
				logging.F("error", err),
			)
		}
	}
	if err := o.store.Clear(); err != nil {
		o.logger.Warn("comparison_state_clear_failed", logging.F("error", err))
	}
	o.state = nil
	o.onRunSwitch()
}

// DeleteRun removes a single candidate. The last remaining run and a
// building run cannot be deleted; deleting the active run switches to
// another one first.
func (o *Orchestrator) DeleteRun(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return errors.New("no comparison in progress")
	}
	run := o.state.Run(id)
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	if len(o.state.Runs) <= 1 {
		return errors.New("cannot delete the last run")
	}
	if run.Status == types.RunStatusBuilding {
		return fmt.Errorf("run %s is still building", run.ID)
	}

	if o.state.ActiveRunID == run.ID {
		var next *types.ComparisonRun
		for _, candidate := range o.state.Runs {
			if candidate.ID != run.ID && candidate.Status != types.RunStatusBuilding {
				next = candidate
				break
			}
		}
		if next == nil {
			return errors.New("no other run to switch to")
		}
		if err := o.switchToLocked(next); err != nil {
			return err
		}
	}

	if err := deleteBranch(o.dir, run.BranchName); err != nil {
		o.logger.Warn("comparison_branch_delete_failed", logging.F("branch", run.BranchName), logging.F("error", err))
	}
	kept := o.state.Runs[:0]
	for _, candidate := range o.state.Runs {
		if candidate.ID != run.ID {
			kept = append(kept, candidate)
		}
	}
	o.state.Runs = kept
	if err := o.store.Save(o.state); err != nil {
		return err
	}
	o.logger.Info("comparison_run_deleted", logging.F("run_id", run.ID))
	return nil
}

// Resume reloads persisted comparison state after a daemon restart and
// validates it against the repository. Anything inconsistent is
// discarded rather than left half-alive.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok, err := o.store.Load()
	if err != nil {
		o.logger.Warn("comparison_resume_load_failed", logging.F("error", err))
		return o.store.Clear()
	}
	if !ok {
		return nil
	}

	active := state.Run(state.ActiveRunID)
	valid := active != nil && branchExists(o.dir, active.BranchName)
	if valid {
		if branch, err := currentBranch(o.dir); err != nil || branch != active.BranchName {
			if err := checkout(o.dir, active.BranchName); err != nil {
				o.logger.Warn("comparison_resume_checkout_failed", logging.F("error", err))
				valid = false
			}
		}
	}
	if !valid {
		o.logger.Warn("comparison_resume_invalid_state_discarded")
		return o.store.Clear()
	}

	o.state = state
	o.logger.Info("comparison_resumed",
		logging.F("phase", string(state.Phase)),
		logging.F("runs", len(state.Runs)),
	)
	return nil
}

func newRun(branchPrefix, prompt, modelID, modelLabel, providerID, providerLabel string) *types.ComparisonRun {
	id := shortID()
	return &types.ComparisonRun{
		ID:            id,
		BranchName:    branchPrefix + id,
		ModelID:       modelID,
		ModelLabel:    modelLabel,
		ProviderID:    providerID,
		ProviderLabel: providerLabel,
		Status:        types.RunStatusBuilding,
		Prompt:        prompt,
		CreatedAt:     time.Now().UTC(),
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}

func cloneState(state *types.ComparisonState) *types.ComparisonState {
	if state == nil {
		return nil
	}
	clone := *state
	clone.Runs = make([]*types.ComparisonRun, len(state.Runs))
	for i, run := range state.Runs {
		runCopy := *run
		if run.TokenUsage != nil {
			usage := *run.TokenUsage
			runCopy.TokenUsage = &usage
		}
		clone.Runs[i] = &runCopy
	}
	return &clone
}
