package infra

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// DefaultBrewBinary is resolved from PATH at spawn time.
const DefaultBrewBinary = "brew"

// inheritedVariables are the only caller environment variables forwarded
// to brew; everything else is withheld for reproducibility.
var inheritedVariables = []string{"HOME", "PATH"}

// BrewExecutor implements domain.CommandExecutor on top of os/exec.
//
// The supervised contract runs three watchers (stdout prompt, stderr
// prompt, completion) plus a timeout alarm, all producing into a single
// buffered event channel; the first event decides the outcome and the
// child is killed by PID on every exit path.
type BrewExecutor struct {
	binary    string
	processes domain.ProcessManager
	logger    *zap.Logger
}

// NewBrewExecutor creates an executor driving the real brew binary.
func NewBrewExecutor(logger *zap.Logger) *BrewExecutor {
	return &BrewExecutor{
		binary:    DefaultBrewBinary,
		processes: NewProcessManager(),
		logger:    logger,
	}
}

// NewBrewExecutorWithDeps creates an executor with injectable dependencies
// (for testing).
func NewBrewExecutorWithDeps(binary string, pm domain.ProcessManager, logger *zap.Logger) *BrewExecutor {
	return &BrewExecutor{
		binary:    binary,
		processes: pm,
		logger:    logger,
	}
}

// Execute runs the command to completion and returns its captured stdout.
// Non-zero exit surfaces the full stderr text; spawn failures surface the
// OS error. The child sees exactly the descriptor's environment.
func (e *BrewExecutor) Execute(ctx context.Context, cmd domain.BrewCommand) (string, error) {
	argv, err := e.renderArgv(cmd)
	if err != nil {
		return "", err
	}

	child := exec.CommandContext(ctx, e.binary, argv...)
	child.Env = environ(cmd.Env())

	var stdout, stderr bytes.Buffer
	child.Stdout = &stdout
	child.Stderr = &stderr

	e.logger.Info("executing",
		zap.String("binary", e.binary),
		zap.Strings("args", argv))

	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", domain.NewExecutionFailed(stderr.String())
		}
		return "", domain.NewExecutionFailed(err.Error())
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", domain.NewExecutionFailed("command stdout is not valid UTF-8")
	}
	return stdout.String(), nil
}

// eventKind discriminates what a supervision producer observed.
type eventKind int

const (
	eventPrompt eventKind = iota
	eventTimeout
	eventCompleted
)

// processEvent travels from the watchers and the alarm to the consumer.
// waitErr is meaningful only for eventCompleted.
type processEvent struct {
	kind    eventKind
	waitErr error
}

// ExecuteWithTimeout runs the command under supervision. The first of
// {prompt detected, timeout elapsed, child completed} decides the outcome;
// the child is killed by its recorded PID before the call returns, and all
// watchers are joined so none outlives the call.
func (e *BrewExecutor) ExecuteWithTimeout(ctx context.Context, cmd domain.BrewCommand, timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}

	argv, err := e.renderArgv(cmd)
	if err != nil {
		return err
	}

	child := exec.CommandContext(ctx, e.binary, argv...)
	child.Env = environ(cmd.Env())

	// os.Pipe instead of StdoutPipe: Wait must run concurrently with the
	// readers, and exec.Cmd-owned pipes forbid that.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return domain.NewExecutionFailed(err.Error())
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return domain.NewExecutionFailed(err.Error())
	}
	child.Stdout = stdoutW
	child.Stderr = stderrW

	e.logger.Info("executing under supervision",
		zap.String("binary", e.binary),
		zap.Strings("args", argv),
		zap.Duration("timeout", timeout))

	if err := child.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return domain.NewExecutionFailed(err.Error())
	}

	// The write ends now belong to the child; dropping our copies makes
	// the watchers see EOF once the child is gone.
	stdoutW.Close()
	stderrW.Close()

	// The PID is recorded here so the terminator never touches the child
	// handle, which the completion watcher owns from this point on.
	pid := child.Process.Pid
	e.logger.Info("supervising child", zap.Int("pid", pid))

	// One buffered slot per producer: no producer can block on send after
	// the consumer has taken the first event and left.
	events := make(chan processEvent, 4)

	var watchers sync.WaitGroup
	watchers.Add(3)
	go watchForPrompt(stdoutR, events, &watchers)
	go watchForPrompt(stderrR, events, &watchers)
	go func() {
		defer watchers.Done()
		events <- processEvent{kind: eventCompleted, waitErr: child.Wait()}
	}()

	alarm := time.AfterFunc(timeout, func() {
		events <- processEvent{kind: eventTimeout}
	})

	result := consumeFirstEvent(events)

	// Unconditional re-kill: a no-op when the child already exited.
	_ = e.processes.Kill(pid)
	alarm.Stop()

	// Closing the read ends unblocks a watcher still parked on a pipe; an
	// orphaned grandchild may hold the write end past the child's death.
	stdoutR.Close()
	stderrR.Close()
	watchers.Wait()

	if result != nil {
		e.logger.Warn("supervised command failed",
			zap.Int("pid", pid),
			zap.Strings("args", argv),
			zap.Error(result))
	}
	return result
}

// InheritedEnv returns HOME and PATH from the process environment,
// omitting any that are unset.
func (e *BrewExecutor) InheritedEnv() map[string]string {
	envs := make(map[string]string, len(inheritedVariables))
	for _, name := range inheritedVariables {
		if value, ok := os.LookupEnv(name); ok {
			envs[name] = value
		}
	}
	return envs
}

// renderArgv validates the command and returns its argv. An upgrade with
// an empty package name is rejected before any child is spawned.
func (e *BrewExecutor) renderArgv(cmd domain.BrewCommand) ([]string, error) {
	if cmd.Kind() == domain.KindUpgrade && cmd.PackageName() == "" {
		return nil, domain.NewExecutionFailed("upgrade requires a non-empty package name")
	}
	return cmd.Argv(), nil
}

// consumeFirstEvent blocks until the first supervision event arrives and
// maps it onto the failure taxonomy.
func consumeFirstEvent(events <-chan processEvent) error {
	ev, ok := <-events
	if !ok {
		return domain.NewExecutionFailed("event channel closed")
	}

	switch ev.kind {
	case eventPrompt:
		return domain.NewInputRequested()
	case eventTimeout:
		return domain.NewTimeout()
	default:
		return completionError(ev.waitErr)
	}
}

// completionError translates the completion watcher's wait result.
func completionError(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return domain.NewExecutionFailed(fmt.Sprintf("Process exited with code: %d", exitErr.ExitCode()))
	}
	return domain.NewExecutionFailed(waitErr.Error())
}

// watchForPrompt scans one output stream line by line and emits a single
// prompt event on the first match. Exits silently on EOF.
func watchForPrompt(stream io.Reader, events chan<- processEvent, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		if IsInteractivePrompt(scanner.Text()) {
			events <- processEvent{kind: eventPrompt}
			return
		}
	}
}

// environ flattens an env map into the sorted KEY=value form os/exec
// expects. The child inherits nothing beyond these entries.
func environ(envs map[string]string) []string {
	out := make([]string, 0, len(envs))
	for name, value := range envs {
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

// Ensure BrewExecutor implements domain.CommandExecutor.
var _ domain.CommandExecutor = (*BrewExecutor)(nil)
