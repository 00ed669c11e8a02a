// Package shell starts local commands without waiting for them.
package shell

import (
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Runner starts commands with "sh -c". Output is discarded.
type Runner struct {
	shell string
	log   zerolog.Logger
	wg    sync.WaitGroup
}

// NewRunner creates a runner using /bin/sh.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		shell: "/bin/sh",
		log:   log.With().Str("component", "shell").Logger(),
	}
}

// Run starts command and returns immediately. The child is reaped in the
// background; failures are only logged.
func (r *Runner) Run(command string) {
	if command == "" {
		return
	}
	cmd := exec.Command(r.shell, "-c", command)
	if err := cmd.Start(); err != nil {
		r.log.Error().Err(err).Str("command", command).Msg("failed to start")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := cmd.Wait(); err != nil {
			r.log.Debug().Err(err).Str("command", command).Msg("command failed")
		}
	}()
}

// Wait blocks until every started command has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}
