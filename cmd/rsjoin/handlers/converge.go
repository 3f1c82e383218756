package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/gate"
	"github.com/imamik/rsjoin/internal/journal"
	"github.com/imamik/rsjoin/internal/logging"
)

// Factory function variables for local runs.
var (
	// readFile reads the run input (for testing injection).
	readFile = os.ReadFile

	// stdout receives reports and history (for testing injection).
	stdout io.Writer = os.Stdout
)

// ConvergeHandler runs one convergence pass outside the gate. The pass still
// claims the cluster on the run oracle, so it never overlaps a gate run.
type ConvergeHandler struct {
	Controller     gate.Converger
	Oracle         gate.Oracle
	Journal        journal.Sink
	ReleaseTimeout time.Duration
}

// Handle converges the cluster described by in. It fails with an error
// wrapping cluster.ErrDeferred when a run is already active. A failed pass is
// returned as a report, not an error.
func (h *ConvergeHandler) Handle(ctx context.Context, in convergence.RunInput) (convergence.Report, error) {
	ctx, logger := logging.WithCluster(ctx, in.Identity())

	handle, err := h.Oracle.StartRun(ctx, in.Identity().WorkflowID(), in)
	if errors.Is(err, gate.ErrRunActive) {
		return convergence.Report{}, fmt.Errorf("convergence run already active: %w", cluster.ErrDeferred)
	}
	if err != nil {
		return convergence.Report{}, cluster.Transport("start run", err)
	}

	report := h.Controller.Converge(ctx, in)
	report.RunID = handle.ID()

	timeout := h.ReleaseTimeout
	if timeout <= 0 {
		timeout = gate.DefaultReleaseTimeout
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := handle.Finish(releaseCtx, report); err != nil {
		logger.Error(err, "failed to release run")
	}
	if h.Journal != nil {
		if err := h.Journal.Record(releaseCtx, report); err != nil {
			logger.Error(err, "failed to journal run")
		}
	}
	return report, nil
}

// Converge runs a single local convergence pass against the run input at
// inputPath and prints the report.
func Converge(ctx context.Context, configPath, inputPath string) error {
	if inputPath == "" {
		return errors.New("a run input is required")
	}
	ctx, rt, err := setup(ctx, configPath, config.ComponentConverge)
	if err != nil {
		return err
	}
	oracle, err := newOracle(rt)
	if err != nil {
		return err
	}
	sink, err := newJournal(ctx, rt)
	if err != nil {
		return err
	}
	h := &ConvergeHandler{
		Controller:     newController(rt),
		Oracle:         oracle,
		Journal:        sink,
		ReleaseTimeout: rt.Config.Timeouts.ReleaseTimeout,
	}
	return convergeOnce(ctx, h, inputPath)
}

func convergeOnce(ctx context.Context, h *ConvergeHandler, inputPath string) error {
	data, err := readFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read run input: %w", err)
	}
	var in convergence.RunInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("failed to decode run input: %w", err)
	}
	if err := in.Identity().Validate(); err != nil {
		return err
	}

	report, err := h.Handle(ctx, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !report.Succeeded() {
		return fmt.Errorf("convergence %s failed: %s", report.Action, report.Error)
	}
	return nil
}
