//go:build unix

package infra

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// writeFakeBrew writes an executable shell script standing in for the brew
// binary and returns its path.
func writeFakeBrew(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brew")
	content := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0755))
	return path
}

func newTestExecutor(binary string) *BrewExecutor {
	return NewBrewExecutorWithDeps(binary, NewProcessManager(), zap.NewNop())
}

func sandboxEnv() map[string]string {
	return map[string]string{"HOME": "/tmp", "PATH": "/usr/bin:/bin"}
}

func TestExecuteCapturesStdout(t *testing.T) {
	brew := writeFakeBrew(t, `echo "Already up-to-date."`)
	executor := newTestExecutor(brew)

	out, err := executor.Execute(context.Background(), domain.NewUpdateCommand(sandboxEnv()))
	require.NoError(t, err)
	assert.Equal(t, "Already up-to-date.\n", out)
}

func TestExecuteNonZeroExitReturnsStderr(t *testing.T) {
	brew := writeFakeBrew(t, `echo "something went wrong" >&2; exit 2`)
	executor := newTestExecutor(brew)

	_, err := executor.Execute(context.Background(), domain.NewUpdateCommand(sandboxEnv()))
	require.Error(t, err)
	assert.True(t, domain.IsExecutionFailed(err))

	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Message, "something went wrong")
}

func TestExecuteSpawnFailure(t *testing.T) {
	executor := newTestExecutor(filepath.Join(t.TempDir(), "no-such-binary"))

	_, err := executor.Execute(context.Background(), domain.NewCleanupCommand(sandboxEnv()))
	require.Error(t, err)
	assert.True(t, domain.IsExecutionFailed(err))
}

func TestExecuteChildSeesOnlyDescriptorEnv(t *testing.T) {
	t.Setenv("BREWKEEPER_LEAK_PROBE", "leaked")

	brew := writeFakeBrew(t, `printf '%s|%s' "$HOME" "$BREWKEEPER_LEAK_PROBE"`)
	executor := newTestExecutor(brew)

	out, err := executor.Execute(context.Background(),
		domain.NewUpdateCommand(map[string]string{"HOME": "/fake/home", "PATH": "/usr/bin:/bin"}))
	require.NoError(t, err)
	assert.Equal(t, "/fake/home|", out)
}

func TestExecuteRejectsEmptyUpgradeName(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	brew := writeFakeBrew(t, `touch `+marker)
	executor := newTestExecutor(brew)

	_, err := executor.Execute(context.Background(), domain.NewUpgradeCommand("", sandboxEnv()))
	require.Error(t, err)
	assert.True(t, domain.IsExecutionFailed(err))
	assert.NoFileExists(t, marker)

	err = executor.ExecuteWithTimeout(context.Background(), domain.NewUpgradeCommand("", sandboxEnv()), time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsExecutionFailed(err))
	assert.NoFileExists(t, marker)
}

func TestExecuteWithTimeoutSuccess(t *testing.T) {
	brew := writeFakeBrew(t, `echo "==> Upgrading wget"; exit 0`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("wget", sandboxEnv()), 10*time.Second)
	assert.NoError(t, err)
}

func TestExecuteWithTimeoutNonZeroExit(t *testing.T) {
	brew := writeFakeBrew(t, `echo "something went wrong" >&2; exit 2`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("wget", sandboxEnv()), 10*time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsExecutionFailed(err))
	assert.Contains(t, err.Error(), "Process exited with code: 2")
}

func TestExecuteWithTimeoutPromptOnStdout(t *testing.T) {
	brew := writeFakeBrew(t, `echo "Do you want to continue? [y/N]"; sleep 30`)
	executor := newTestExecutor(brew)

	start := time.Now()
	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("bar", sandboxEnv()), 20*time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsInputRequested(err))
	assert.Less(t, time.Since(start), 10*time.Second, "prompt must abort long before the timeout")
}

func TestExecuteWithTimeoutPromptOnStderrOnly(t *testing.T) {
	brew := writeFakeBrew(t, `echo "Proceed? (y/N)" >&2; sleep 30`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("bar", sandboxEnv()), 20*time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsInputRequested(err))
}

func TestExecuteWithTimeoutTimesOut(t *testing.T) {
	brew := writeFakeBrew(t, `sleep 30`)
	executor := newTestExecutor(brew)

	start := time.Now()
	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("baz", sandboxEnv()), 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second, "call must return shortly after the timeout")
}

func TestExecuteWithTimeoutZeroExpiresImmediately(t *testing.T) {
	brew := writeFakeBrew(t, `sleep 30`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("baz", sandboxEnv()), 0)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
}

func TestExecuteWithTimeoutNegativeClampsToZero(t *testing.T) {
	brew := writeFakeBrew(t, `sleep 30`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("baz", sandboxEnv()), -time.Minute)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
}

func TestChildIsDeadAfterSupervisedReturn(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	brew := writeFakeBrew(t, `echo $$ > `+pidFile+`; sleep 30`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("baz", sandboxEnv()), 300*time.Millisecond)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)

	pm := NewProcessManager()
	assert.False(t, pm.IsRunning(pid), "child %d must be dead when the supervised call returns", pid)
}

func TestChildIsDeadAfterPromptAbort(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	brew := writeFakeBrew(t, `echo $$ > `+pidFile+`; echo "Press ENTER to continue"; sleep 30`)
	executor := newTestExecutor(brew)

	err := executor.ExecuteWithTimeout(context.Background(),
		domain.NewUpgradeCommand("bar", sandboxEnv()), 20*time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsInputRequested(err))

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)

	assert.False(t, NewProcessManager().IsRunning(pid))
}

func TestInheritedEnv(t *testing.T) {
	t.Setenv("HOME", "/test/home")
	t.Setenv("PATH", "/test/bin")

	envs := newTestExecutor(DefaultBrewBinary).InheritedEnv()
	assert.Equal(t, map[string]string{"HOME": "/test/home", "PATH": "/test/bin"}, envs)
}

func TestInheritedEnvOmitsUnsetVariables(t *testing.T) {
	t.Setenv("HOME", "placeholder")
	require.NoError(t, os.Unsetenv("HOME"))

	envs := newTestExecutor(DefaultBrewBinary).InheritedEnv()
	_, ok := envs["HOME"]
	assert.False(t, ok)
}
