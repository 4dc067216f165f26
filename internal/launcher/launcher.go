package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/swipswaps/cursor-appimage-installer/internal/install"
	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

// TerminateInstances signals every running instance of the installed
// executable owned by the current user. Other users' processes are never
// touched, and a run with no matches is a success. Returns the number of
// instances signalled.
func TerminateInstances(ctx context.Context, executablePath string) (int, error) {
	currentUser, err := user.Current()
	if err != nil {
		return 0, fmt.Errorf("detect current user: %w", err)
	}

	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("enumerate processes: %w", err)
	}

	selfPID := int32(os.Getpid())
	terminated := 0

	for _, proc := range processes {
		if proc.Pid == selfPID {
			continue
		}

		owner, ownerErr := proc.UsernameWithContext(ctx)
		if ownerErr != nil || owner != currentUser.Username {
			continue
		}

		exe, _ := proc.ExeWithContext(ctx)
		cmdline, _ := proc.CmdlineWithContext(ctx)

		if !matchesTarget(exe, cmdline, executablePath) {
			continue
		}

		if termErr := proc.TerminateWithContext(ctx); termErr != nil {
			logger.Warnf(ctx, "Could not terminate pid %d: %v", proc.Pid, termErr)
			continue
		}

		logger.InfoKV(ctx, "Terminated running instance", "pid", proc.Pid)

		terminated++
	}

	return terminated, nil
}

// matchesTarget reports whether a process belongs to the installed
// executable, either by its resolved binary path or its command line.
func matchesTarget(exe, cmdline, executablePath string) bool {
	if executablePath == "" {
		return false
	}

	if exe == executablePath {
		return true
	}

	return strings.Contains(cmdline, executablePath)
}

// Spawn starts the installed executable detached from the controlling
// terminal with the fixed compatibility flags. The child outlives this
// process; the returned error only covers the start itself.
func Spawn(ctx context.Context, executablePath string) error {
	cmd := exec.Command(executablePath, install.CompatFlags()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", executablePath, err)
	}

	logger.InfoKV(ctx, "Application launched", "pid", cmd.Process.Pid)

	return cmd.Process.Release()
}
