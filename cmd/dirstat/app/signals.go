/*
Package app signal handling provides graceful shutdown for dirstat. A
first SIGINT or SIGTERM cancels the running operation and lets it wind
down; a second one forces an immediate exit. SIGHUP reloads the
configuration from the environment, which matters for long-lived watch
sessions.
*/
package app

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// shutdownGrace bounds how long a graceful shutdown may take before the
// process exits anyway.
const shutdownGrace = 30 * time.Second

// signalState tracks the state of signal handling
type signalState struct {
	shutdownInitiated atomic.Bool
}

// setupSignalHandling initializes signal handling for graceful shutdown
func (a *App) setupSignalHandling() {
	state := &signalState{}

	a.log.Debug("Initializing signal handlers")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)

	go a.handleSignals(sigChan, state)
}

// handleSignals processes incoming system signals
func (a *App) handleSignals(sigChan chan os.Signal, state *signalState) {
	for sig := range sigChan {
		a.log.WithFields(logger.Fields{
			"signal": sig.String(),
		}).Debug("Received system signal")

		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			if !state.shutdownInitiated.CompareAndSwap(false, true) {
				a.handleForcedShutdown()
				return
			}
			go a.handleGracefulShutdown()

		case syscall.SIGHUP:
			a.handleHangup()
		}
	}
}

// handleGracefulShutdown cancels the running operation and waits for
// the application to finish, forcing an exit after the grace period.
func (a *App) handleGracefulShutdown() {
	a.log.Info("Interrupt received, finishing up (press again to force)")

	a.cancel()

	select {
	case <-a.done:
		a.log.Info("Graceful shutdown completed")
	case <-time.After(shutdownGrace):
		a.log.Error("Shutdown timed out")
		os.Exit(1)
	}
}

// handleForcedShutdown performs an immediate shutdown
func (a *App) handleForcedShutdown() {
	a.log.Warn("Forced shutdown initiated")

	a.cancel()
	a.progress.Stop()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithFields(logger.Fields{
				"error": err,
			}).Error("Failed to close cache during forced shutdown")
		}
	}

	os.Exit(130)
}

// handleHangup reloads configuration from the environment
func (a *App) handleHangup() {
	a.log.Info("Received SIGHUP, reloading configuration")

	newConfig, err := config.Load()
	if err != nil {
		a.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to reload configuration")
		return
	}

	a.mu.Lock()
	// Output destination and cache location stay fixed for the process
	// lifetime; tunables take effect on the next scan or update.
	newConfig.Output = a.config.Output
	newConfig.OutputFile = a.config.OutputFile
	newConfig.CachePath = a.config.CachePath
	newConfig.CacheEnabled = a.config.CacheEnabled
	*a.config = newConfig
	a.mu.Unlock()

	a.log.Info("Configuration reloaded successfully")
}
