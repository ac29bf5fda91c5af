// Package streaming provides cooperative job lifecycle primitives for the
// task orchestrator: suspend/resume of idle filter jobs and signal-driven
// teardown ordering.
package streaming

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SpillCleaner is an optional interface for jobs that write scratch files to
// disk while hibernated. CleanupSpills removes all temp directories and
// files. It is called by SpillCleanupGuard on normal exit, error exit, and
// SIGTERM/SIGINT to prevent orphaned temp files.
type SpillCleaner interface {
	CleanupSpills()
}

// SpillCleanupGuard ensures that scratch temp directories are removed when
// the orchestrator exits, whether normally, on error, or via signal.
// Create one via NewSpillCleanupGuard and defer its Close method.
type SpillCleanupGuard struct {
	cleaners []SpillCleaner
	logger   *slog.Logger
	sigCh    chan os.Signal
	once     sync.Once
}

// NewSpillCleanupGuard registers SIGTERM and SIGINT handlers that invoke
// CleanupSpills on all registered jobs. The caller must defer Close()
// to ensure cleanup runs on normal/error exit and the signal handler is
// deregistered.
func NewSpillCleanupGuard(cleaners []SpillCleaner, logger *slog.Logger) *SpillCleanupGuard {
	g := &SpillCleanupGuard{
		cleaners: cleaners,
		logger:   logger,
		sigCh:    make(chan os.Signal, 1),
	}

	signal.Notify(g.sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig, ok := <-g.sigCh
		if !ok {
			return
		}

		g.logger.Warn("orchestrator: received signal, cleaning up scratch files", "signal", sig.String())
		g.cleanup()
	}()

	return g
}

// Close performs spill cleanup (if not already done) and deregisters
// the signal handler.
func (g *SpillCleanupGuard) Close() {
	g.cleanup()
	signal.Stop(g.sigCh)
	close(g.sigCh)
}

func (g *SpillCleanupGuard) cleanup() {
	g.once.Do(func() {
		for _, c := range g.cleaners {
			c.CleanupSpills()
		}
	})
}

// Hibernatable is an optional interface for per-(tab,graph) filter jobs that
// support hibernation. Jobs implementing this interface can have their state
// compressed while idle to reduce memory usage.
type Hibernatable interface {
	// Hibernate compresses the job's state to reduce memory usage.
	// Called when a tab or graph goes idle.
	Hibernate() error

	// Boot restores the job from hibernated state.
	// Called before resuming work after hibernation.
	Boot() error
}

// hibernateAll calls Hibernate on all hibernatable jobs.
func hibernateAll(jobs []Hibernatable) error {
	for _, h := range jobs {
		err := h.Hibernate()
		if err != nil {
			return err
		}
	}

	return nil
}

// bootAll calls Boot on all hibernatable jobs.
func bootAll(jobs []Hibernatable) error {
	for _, h := range jobs {
		err := h.Boot()
		if err != nil {
			return err
		}
	}

	return nil
}
