package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/faultlens/internal/logging"
)

// Manager starts components in registration order and stops them in reverse.
type Manager struct {
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	mu              sync.Mutex
	logger          *logging.Logger
}

// NewManager creates a manager with a 30 second per-component stop timeout.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle.manager"),
	}
}

// Register appends a component. Components are started in the order they
// were registered, so register dependencies first.
func (m *Manager) Register(c Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if c.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, existing := range m.components {
		if existing == c {
			return fmt.Errorf("component %s is already registered", c.Name())
		}
	}
	m.components = append(m.components, c)
	m.logger.Debug("Registered component %s", c.Name())
	return nil
}

// Start starts every component. If one fails, the ones already started are
// stopped in reverse order and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = m.started[:0]
	for _, c := range m.components {
		m.logger.Info("Starting %s", c.Name())
		begin := time.Now()

		if err := c.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", c.Name(), err)
			m.stopStarted(context.Background(), 5*time.Second)
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		m.started = append(m.started, c)
		m.logger.Info("%s started (took %dms)", c.Name(), time.Since(begin).Milliseconds())
	}
	return nil
}

// Stop stops the started components in reverse order. Each component gets
// its own timeout. Errors are logged and joined; all components are stopped
// regardless.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping all components")
	err := m.stopStarted(ctx, m.shutdownTimeout)
	m.logger.Info("All components stopped")
	return err
}

func (m *Manager) stopStarted(ctx context.Context, timeout time.Duration) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := c.Stop(cctx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded grace period (%dms)", c.Name(), timeout.Milliseconds())
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
		case err != nil:
			m.logger.Error("Error stopping %s: %v", c.Name(), err)
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
		default:
			m.logger.Info("%s stopped", c.Name())
		}
	}
	m.started = m.started[:0]
	return errors.Join(errs...)
}

// SetShutdownTimeout sets the per-component grace period used by Stop.
func (m *Manager) SetShutdownTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = d
}
