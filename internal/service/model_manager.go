package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"ocrgate/internal/domain"
	"ocrgate/internal/port"
)

// ModelManagerConfig holds settings for the model resource manager.
type ModelManagerConfig struct {
	// MaxBacklog caps how many callers may queue for the execution lane
	// before new arrivals are rejected. Zero means unbounded.
	MaxBacklog int
	// LoadTimeout bounds the one-time model load.
	LoadTimeout time.Duration
}

// ModelManager owns the single model instance and arbitrates access to
// it. Loading is lazy and single-flight; all inference funnels through
// one FIFO execution lane because the accelerator has a single tenant.
// Construct one instance at process start and inject it into the
// request path.
type ModelManager struct {
	engine port.InferenceEngine
	cfg    ModelManagerConfig

	mu       sync.Mutex
	state    domain.ModelState
	loadErr  error
	loadDone chan struct{}

	laneBusy bool
	waiters  []chan struct{}

	invocations atomic.Int64
}

// NewModelManager creates a ModelManager around the given engine.
func NewModelManager(engine port.InferenceEngine, cfg ModelManagerConfig) *ModelManager {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 10 * time.Minute
	}
	return &ModelManager{
		engine: engine,
		cfg:    cfg,
		state:  domain.ModelUnloaded,
	}
}

// ModelHandle is the loaded model as seen by a lane holder. Only
// WithModel hands one out, so holding a handle implies holding the lane.
type ModelHandle struct {
	m *ModelManager
}

// Infer performs one forward pass and counts the invocation.
func (h *ModelHandle) Infer(ctx context.Context, input port.InferInput) (*port.InferOutput, error) {
	h.m.invocations.Add(1)
	return h.m.engine.Infer(ctx, input)
}

// State returns the current model lifecycle state without forcing a load.
func (m *ModelManager) State() domain.ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Invocations returns how many model forward passes have been issued.
func (m *ModelManager) Invocations() int64 {
	return m.invocations.Load()
}

// QueueDepth returns how many callers are waiting for the execution lane.
func (m *ModelManager) QueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// EnsureLoaded loads the model if needed. Exactly one caller performs
// the load; concurrent callers block until it completes. A failed load
// is cached for the remaining life of the process, so later callers
// fail fast with ErrModelLoadFailed instead of retrying the expensive
// load. The supervisor clears that state by restarting the process.
func (m *ModelManager) EnsureLoaded(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case domain.ModelReady:
		m.mu.Unlock()
		return nil
	case domain.ModelFailed:
		err := m.loadErr
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, err)
	case domain.ModelLoading:
		done := m.loadDone
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return mapCtxErr(ctx.Err())
		case <-done:
		}
		return m.loadOutcome()
	}

	// Unloaded: this caller performs the load.
	m.state = domain.ModelLoading
	m.loadDone = make(chan struct{})
	done := m.loadDone
	m.mu.Unlock()

	log.Printf("modelManager.EnsureLoaded: loading model (timeout %s)", m.cfg.LoadTimeout)
	// The load runs on its own context: a single caller disconnecting
	// must not abort the shared load.
	loadCtx, cancel := context.WithTimeout(context.Background(), m.cfg.LoadTimeout)
	defer cancel()
	err := m.engine.Load(loadCtx)

	m.mu.Lock()
	if err != nil {
		m.state = domain.ModelFailed
		m.loadErr = err
		log.Printf("modelManager.EnsureLoaded: load failed permanently: %v", err)
	} else {
		m.state = domain.ModelReady
		log.Printf("modelManager.EnsureLoaded: model ready")
	}
	m.loadDone = nil
	m.mu.Unlock()
	close(done)

	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, err)
	}
	return nil
}

func (m *ModelManager) loadOutcome() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == domain.ModelFailed {
		return fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, m.loadErr)
	}
	return nil
}

// WithModel acquires the exclusive execution lane, runs fn with the
// model handle, and releases the lane on every exit path. Callers queue
// FIFO; a full backlog rejects with ErrServerBusy, and a deadline that
// expires while queued surfaces as ErrDeadlineExceeded.
func (m *ModelManager) WithModel(ctx context.Context, fn func(*ModelHandle) error) error {
	if err := m.EnsureLoaded(ctx); err != nil {
		return err
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	return fn(&ModelHandle{m: m})
}

func (m *ModelManager) acquire(ctx context.Context) error {
	m.mu.Lock()
	if !m.laneBusy {
		m.laneBusy = true
		m.mu.Unlock()
		return nil
	}
	if m.cfg.MaxBacklog > 0 && len(m.waiters) >= m.cfg.MaxBacklog {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d jobs queued", domain.ErrServerBusy, m.cfg.MaxBacklog)
	}
	ticket := make(chan struct{})
	m.waiters = append(m.waiters, ticket)
	m.mu.Unlock()

	select {
	case <-ticket:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range m.waiters {
			if w == ticket {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				m.mu.Unlock()
				return mapCtxErr(ctx.Err())
			}
		}
		m.mu.Unlock()
		// The lane was handed to us concurrently with cancellation.
		// We own it now, so pass it on before bailing out.
		<-ticket
		m.release()
		return mapCtxErr(ctx.Err())
	}
}

// release hands the lane to the next FIFO waiter, or frees it when the
// queue is empty. The lane stays continuously owned across a handoff.
func (m *ModelManager) release() {
	m.mu.Lock()
	if len(m.waiters) > 0 {
		next := m.waiters[0]
		m.waiters = m.waiters[1:]
		m.mu.Unlock()
		close(next)
		return
	}
	m.laneBusy = false
	m.mu.Unlock()
}

func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gave up waiting for the execution lane", domain.ErrDeadlineExceeded)
	}
	return err
}
