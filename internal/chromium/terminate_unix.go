//go:build !windows

package chromium

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// prepareCommand runs the acquisition in its own process group so a stop
// reaches any helpers it spawned.
func prepareCommand(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func terminateProcess(proc *os.Process) error {
	return signalGroup(proc, unix.SIGTERM)
}

func killProcess(proc *os.Process) error {
	return signalGroup(proc, unix.SIGKILL)
}

func signalGroup(proc *os.Process, sig unix.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	if err := unix.Kill(-proc.Pid, sig); err != nil && !errors.Is(err, unix.ESRCH) && !errors.Is(err, unix.EPERM) {
		return err
	}
	return nil
}

// exitSignal names the signal that ended the process, if any.
func exitSignal(state *os.ProcessState) string {
	if state == nil {
		return ""
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(ws.Signal())
}

// stoppedByRequest reports whether the exit matches a stop we delivered:
// death by SIGTERM or SIGKILL, or the graceful terminated exit code.
func stoppedByRequest(state *os.ProcessState) bool {
	if state == nil {
		return false
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal() == unix.SIGTERM || ws.Signal() == unix.SIGKILL
	}
	return state.ExitCode() == ExitCodeTerminated
}
