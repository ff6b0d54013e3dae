package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrCapacityExceeded is returned when the insecure executor's bounded
// worker pool is already full.
var ErrCapacityExceeded = errors.New("sandbox: insecure executor at capacity")

// InsecureExecutor runs the substituted run_script directly on the host
// with no isolation. It must stay off by default in production and exists
// only so tests can judge a writ without Docker, grounded in the pack's
// semaphore-bounded subprocess runner: a non-blocking capacity gate, a
// context deadline, and explicit process teardown to avoid leaving
// zombies behind.
type InsecureExecutor struct {
	baseDir   string
	semaphore chan struct{}
}

func NewInsecureExecutor(baseDir string, concurrency int) *InsecureExecutor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &InsecureExecutor{baseDir: baseDir, semaphore: make(chan struct{}, concurrency)}
}

func (e *InsecureExecutor) Execute(ctx context.Context, writ Writ, limits Limits) (Result, error) {
	select {
	case e.semaphore <- struct{}{}:
		defer func() { <-e.semaphore }()
	default:
		return Result{}, ErrCapacityExceeded
	}

	scratchDir := filepath.Join(e.baseDir, fmt.Sprintf("%d-%s", writ.RunID, uuid.NewString()))
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("sandbox: create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	programFile := filepath.Join(scratchDir, "program")
	inputFile := filepath.Join(scratchDir, "input")
	runnerFile := filepath.Join(scratchDir, "runner")

	if err := os.WriteFile(programFile, []byte(writ.SourceCode), 0o644); err != nil {
		return Result{}, fmt.Errorf("sandbox: write program: %w", err)
	}
	if err := os.WriteFile(inputFile, []byte(writ.Input), 0o644); err != nil {
		return Result{}, fmt.Errorf("sandbox: write input: %w", err)
	}
	rendered := renderScript(writ.RunScript, inputFile, programFile, scratchDir)
	if err := os.WriteFile(runnerFile, []byte(rendered), 0o755); err != nil {
		return Result{}, fmt.Errorf("sandbox: write runner: %w", err)
	}

	timeout := time.Duration(limits.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	outputLimit := limits.OutputLimit
	if outputLimit <= 0 {
		outputLimit = 100000
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, runnerFile)
	cmd.Dir = scratchDir
	out := newCappedWriter(outputLimit)
	cmd.Stdout = out
	cmd.Stderr = out

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return Result{State: StateTimedOut, Output: timedOutMessage}, nil
	}
	if out.exceeded {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return Result{State: StateOutputLimitExceeded, Output: outputLimitMessage}, nil
	}
	if runErr != nil {
		return Result{}, fmt.Errorf("sandbox: run writ %d: %w", writ.RunID, runErr)
	}

	captured := out.String()
	if len(captured) == 0 {
		return Result{State: StateNoOutput, Output: ""}, nil
	}
	return Result{State: StateExecuted, Output: captured}, nil
}
