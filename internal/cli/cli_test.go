package cli

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// withTempWorkdir chdirs into a fresh temp directory for the duration of
// the test, since each command roots its store at the current working
// directory.
func withTempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func runCommand(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func TestCLISetThenGet(t *testing.T) {
	withTempWorkdir(t)

	_, err := runCommand(t, "set", "a", "1")
	require.NoError(t, err)

	out, err := runCommand(t, "get", "a")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)
}

func TestCLIGetMissingKeyPrintsKeyNotFound(t *testing.T) {
	withTempWorkdir(t)

	out, err := runCommand(t, "get", "nope")
	require.NoError(t, err)
	require.Equal(t, "Key not found\n", out)
}

func TestCLIRmExistingKeySucceeds(t *testing.T) {
	withTempWorkdir(t)

	_, err := runCommand(t, "set", "a", "1")
	require.NoError(t, err)

	_, err = runCommand(t, "rm", "a")
	require.NoError(t, err)

	out, err := runCommand(t, "get", "a")
	require.NoError(t, err)
	require.Equal(t, "Key not found\n", out)
}

func TestCLISetRequiresTwoArgs(t *testing.T) {
	withTempWorkdir(t)

	_, err := runCommand(t, "set", "onlykey")
	require.Error(t, err)
}

// TestCLIRmMissingKeyExitsNonZero drives rm on an absent key out-of-process:
// rm exits 1 and prints "Key not found" on a missing key, and calling
// os.Exit directly in-process would kill the test binary itself.
func TestCLIRmMissingKeyExitsNonZero(t *testing.T) {
	if os.Getenv("KVS_CLI_SUBPROCESS") == "1" {
		root := newRootCmd()
		root.SetArgs([]string{"rm", "nope"})
		_ = root.Execute()
		return
	}

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=TestCLIRmMissingKeyExitsNonZero")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "KVS_CLI_SUBPROCESS=1")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	require.Error(t, err)

	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	require.Equal(t, 1, exitErr.ExitCode())
	require.Equal(t, "Key not found\n", stdout.String())
}
