// Package action launches button commands.
package action

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"

	"github.com/jmylchreest/waysay/internal/wire"
)

// Executor spawns shell commands detached from the bar process. The bar
// does not wait for, or reap, what it launches.
type Executor struct {
	logger *slog.Logger

	// Shell is the interpreter invoked with -c. Defaults to /bin/sh.
	Shell string
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger, Shell: "/bin/sh"}
}

// Execute starts `<shell> -c <command>` in its own session so it survives
// the bar exiting. A spawn failure is logged and reported as a SpawnError;
// it never prevents the session from closing normally.
func (e *Executor) Execute(command string) error {
	cmd := exec.Command(e.Shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		e.logger.Error("failed to spawn command", "command", command, "error", err)
		return fmt.Errorf("%w: spawn %q: %v", wire.ErrSpawn, command, err)
	}
	e.logger.Debug("spawned command", "command", command, "pid", cmd.Process.Pid)
	return cmd.Process.Release()
}
