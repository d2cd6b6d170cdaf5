package daemon

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
)

// detachedEnv marks the re-executed child so it does not detach again.
const detachedEnv = "SYNCABOUTIT_DETACHED"

// Detached reports whether this process is the detached child.
func Detached() bool {
	return os.Getenv(detachedEnv) == "1"
}

// Detach re-executes the binary in a new session with stdio on /dev/null
// and the working directory at /. The caller (the parent) should exit once
// Detach returns.
func Detach() error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "locate executable")
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "open /dev/null")
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Dir = "/"
	cmd.Env = append(os.Environ(), detachedEnv+"=1")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start detached process")
	}
	// The child belongs to its own session now; do not wait on it.
	return cmd.Process.Release()
}
