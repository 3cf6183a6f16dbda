package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipper/internal/config"
	"clipper/internal/ingest"
	"clipper/internal/logging"
	"clipper/internal/store"
)

// DeliveryHandler consumes one delivery end to end. It is the consumer's
// surface; tests substitute their own.
type DeliveryHandler interface {
	Consume(ctx context.Context, delivery ingest.Delivery) error
}

// Manager runs N worker goroutines that pull deliveries off the transport
// and hand them to the consumer. Workers are isolated from each other: one
// job failing never stops the pool.
type Manager struct {
	transport ingest.Transport
	handler   DeliveryHandler
	store     *store.Store
	logger    *slog.Logger

	workers       int
	errorInterval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a manager sized from configuration.
func NewManager(cfg *config.Config, transport ingest.Transport, handler DeliveryHandler, st *store.Store, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	errorInterval := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorInterval <= 0 {
		errorInterval = 5 * time.Second
	}
	return &Manager{
		transport:     transport,
		handler:       handler,
		store:         st,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		workers:       workers,
		errorInterval: errorInterval,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	workers := m.workers
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	m.logger.Info("workflow started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, slot int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int(logging.FieldWorker, slot))

	for {
		delivery, err := m.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ingest.ErrTransportClosed) {
				return
			}
			m.setLastError(err)
			logger.Error("receive failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "transport_receive_failed"),
				logging.String(logging.FieldErrorHint, "check transport connectivity"))
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.errorInterval):
			}
			continue
		}

		if err := m.handler.Consume(ctx, delivery); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			logger.Error("job failed", logging.Error(err))
			continue
		}
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	Workers   int
	LastError string
	JobStats  store.JobStats
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	workers := m.workers
	m.mu.RUnlock()

	summary := StatusSummary{Running: running, Workers: workers}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if m.store != nil {
		stats, err := m.store.Stats(ctx)
		if err != nil {
			m.logger.Warn("failed to read job stats", logging.Error(err))
		} else {
			summary.JobStats = stats
		}
	}
	return summary
}
