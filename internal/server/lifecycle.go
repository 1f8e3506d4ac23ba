// Package server supervises the long-running components of the drakon
// process — the HTTP API and the websocket hub's broadcast loop — using
// gopkg.in/tomb.v2: each component runs as a tomb goroutine, and a
// failure or a death signal brings the rest down together instead of
// leaking goroutines.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

// Component is one supervised long-running piece of the server. Run must
// return promptly once it observes t.Dying().
type Component func(t *tomb.Tomb) error

// Supervisor runs a fixed set of Components under one tomb and exposes a
// single shutdown point.
type Supervisor struct {
	t      tomb.Tomb
	logger zerolog.Logger
}

// NewSupervisor creates a Supervisor logging through logger.
func NewSupervisor(logger zerolog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Go starts component under the supervisor's tomb.
func (s *Supervisor) Go(name string, component Component) {
	s.t.Go(func() error {
		s.logger.Info().Str("component", name).Msg("component starting")
		err := component(&s.t)
		if err != nil {
			s.logger.Error().Str("component", name).Err(err).Msg("component exited")
		}
		return err
	})
}

// Kill requests every component to stop.
func (s *Supervisor) Kill(err error) { s.t.Kill(err) }

// Wait blocks until every component has returned, yielding the first
// non-nil error (if any).
func (s *Supervisor) Wait() error { return s.t.Wait() }

// Dying returns the tomb's dying channel, for components that select on
// it directly rather than taking the *tomb.Tomb parameter.
func (s *Supervisor) Dying() <-chan struct{} { return s.t.Dying() }

// HTTPComponent adapts an *http.Server into a Component: it serves until
// the tomb dies, then shuts down gracefully within shutdownTimeout.
func HTTPComponent(srv *http.Server, shutdownTimeout time.Duration) Component {
	return func(t *tomb.Tomb) error {
		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
				return
			}
			errCh <- nil
		}()

		select {
		case err := <-errCh:
			return err
		case <-t.Dying():
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	}
}
