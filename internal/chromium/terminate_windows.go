//go:build windows

package chromium

import (
	"errors"
	"os"
	"os/exec"
)

func prepareCommand(*exec.Cmd) {}

// terminateProcess kills the process; Windows has no SIGTERM equivalent for
// console children.
func terminateProcess(proc *os.Process) error {
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func killProcess(proc *os.Process) error {
	return terminateProcess(proc)
}

func exitSignal(*os.ProcessState) string { return "" }

// killExitCode is the status TerminateProcess leaves on a process ended by
// os.Process.Kill.
const killExitCode = 1

func stoppedByRequest(state *os.ProcessState) bool {
	return state != nil && state.ExitCode() == killExitCode
}
