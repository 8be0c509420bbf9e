package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/database/repository"
)

const (
	trainScript    = "train_model.py"
	classifyScript = "classify_transaction.py"
)

var categorizedCount = regexp.MustCompile(`(?i)(\d+)\s+transactions were auto-categorized`)

// RunResult is what an external process produced.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner starts a process in dir and waits for it, honoring ctx.
// A non-zero exit is reported through RunResult, not as an error.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (RunResult, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// ClassifierRun summarizes one invocation.
type ClassifierRun struct {
	ExitCode    int    `json:"exitCode"`
	Output      string `json:"output"`
	Categorized *int   `json:"categorized,omitempty"`
}

// Succeeded reports a clean exit.
func (r ClassifierRun) Succeeded() bool { return r.ExitCode == 0 }

// Classifier drives the external training and classification scripts. Every
// run is bounded by its timeout and by the caller's context.
type Classifier struct {
	Runner          CommandRunner
	Python          string
	ScriptDir       string
	ModelDir        string
	DBPath          string
	TrainTimeout    time.Duration
	ClassifyTimeout time.Duration
	Config          *repository.UserConfigRepo
	Now             func() time.Time
	Log             zerolog.Logger
}

// ClassifyIDs categorizes the given transactions.
func (c *Classifier) ClassifyIDs(ctx context.Context, ids []string) (ClassifierRun, error) {
	if len(ids) == 0 {
		return ClassifierRun{Output: "No transactions to classify."}, nil
	}
	return c.run(ctx, c.ClassifyTimeout, classifyScript, "--ids", strings.Join(ids, ","))
}

// ClassifySince categorizes every transaction from start onwards.
func (c *Classifier) ClassifySince(ctx context.Context, start time.Time) (ClassifierRun, error) {
	return c.run(ctx, c.ClassifyTimeout, classifyScript, start.UTC().Format("2006-01-02"))
}

// Train retrains the model and, on a clean exit, records the training date.
func (c *Classifier) Train(ctx context.Context) (ClassifierRun, error) {
	run, err := c.run(ctx, c.TrainTimeout, trainScript, c.DBPath, c.ModelDir)
	if err != nil || !run.Succeeded() {
		return run, err
	}
	if c.Config != nil {
		if err := c.Config.SetClassifierTrainingDate(ctx, c.now().Format(time.RFC3339)); err != nil {
			return run, fmt.Errorf("record training date: %w", err)
		}
	}
	return run, nil
}

func (c *Classifier) run(ctx context.Context, timeout time.Duration, script string, args ...string) (ClassifierRun, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	python := c.Python
	if python == "" {
		python = "python3"
	}

	argv := append([]string{filepath.Join(c.ScriptDir, script)}, args...)
	c.Log.Info().Str("script", script).Int("args", len(args)).Msg("classifier: starting")
	start := time.Now()

	res, err := runner.Run(ctx, c.ScriptDir, python, argv...)
	if err != nil {
		if ctx.Err() != nil {
			c.Log.Warn().Err(err).Str("script", script).Msg("classifier: stopped")
			return ClassifierRun{ExitCode: -1, Output: summarize(res)}, fmt.Errorf("classifier %s: %w", script, err)
		}
		return ClassifierRun{ExitCode: -1, Output: "Classifier failed to start: " + err.Error()}, fmt.Errorf("classifier %s: %w", script, err)
	}

	run := ClassifierRun{ExitCode: res.ExitCode, Output: summarize(res), Categorized: parseCategorized(res.Stdout)}
	c.Log.Info().Str("script", script).Int("exit_code", run.ExitCode).Dur("took", time.Since(start)).Msg("classifier: finished")
	return run, nil
}

func (c *Classifier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func summarize(res RunResult) string {
	out := "Classifier exited with code " + strconv.Itoa(res.ExitCode) + ".\n" + res.Stdout
	if res.Stderr != "" {
		out += "\nErrors:\n" + res.Stderr
	}
	return out
}

func parseCategorized(output string) *int {
	m := categorizedCount.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
