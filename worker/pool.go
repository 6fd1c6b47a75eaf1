package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stonefell/slate/http"
	"go.uber.org/multierr"
)

// State is the lifecycle position of one worker slot.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateExited
)

const (
	DefaultGracePeriod = 10 * time.Second

	// MaxCrashes caps consecutive abnormal exits of one worker slot.
	// Once reached the slot stays down; the siblings keep serving.
	MaxCrashes = 5
)

// Pool binds one listening socket and fans it out to Count
// independently scheduled workers. Workers share nothing but the
// listener and whatever read-only state the handler closes over.
type Pool struct {
	Addr    string
	Count   int
	Handler http.Handler
	Logger  *slog.Logger

	GracePeriod time.Duration

	// IdleTimeout is handed to each worker's dispatcher; zero keeps
	// the dispatcher default.
	IdleTimeout time.Duration

	mu     sync.Mutex
	states []State

	// serve is swapped out by tests to simulate crashing workers.
	serve func(num int, id string, listener net.Listener) error
}

func NewPool(addr string, count int, handler http.Handler, logger *slog.Logger) (*Pool, error) {
	if count < 1 {
		return nil, fmt.Errorf("worker: count must be positive, got %d", count)
	}

	p := &Pool{
		Addr:        addr,
		Count:       count,
		Handler:     handler,
		Logger:      logger,
		GracePeriod: DefaultGracePeriod,
		states:      make([]State, count),
	}
	p.serve = p.runWorker
	return p, nil
}

// Run binds the address, starts the workers and blocks until ctx is
// cancelled or every worker has exited. On cancellation the listener
// closes, in-flight responses drain, and Run waits at most GracePeriod
// before giving up on stragglers.
func (p *Pool) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("worker: binding %s: %w", p.Addr, err)
	}

	return p.Serve(ctx, listener)
}

// Serve fans an already-bound listener out to the workers. Run is the
// usual entry point; Serve exists for callers that bind themselves.
func (p *Pool) Serve(ctx context.Context, listener net.Listener) error {
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var workerErrs error

	for num := 1; num <= p.Count; num++ {
		wg.Add(1)
		go func(num int) {
			defer wg.Done()
			if err := p.supervise(ctx, num, listener); err != nil {
				errMu.Lock()
				workerErrs = multierr.Append(workerErrs, err)
				errMu.Unlock()
			}
		}(num)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.Logger.Info("shutting down worker pool")
		listener.Close()

		select {
		case <-done:
		case <-time.After(p.GracePeriod):
			errMu.Lock()
			workerErrs = multierr.Append(workerErrs, errors.New("worker: grace period exceeded during shutdown"))
			errMu.Unlock()
		}
	case <-done:
		// All workers gone without a shutdown signal; nothing left to
		// serve with.
		listener.Close()
	}

	errMu.Lock()
	defer errMu.Unlock()
	return workerErrs
}

// supervise runs one worker slot: Starting -> Serving -> Exited, with
// bounded exponential backoff between abnormal exits.
func (p *Pool) supervise(ctx context.Context, num int, listener net.Listener) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	defer p.setState(num, StateExited)

	crashes := 0
	for {
		p.setState(num, StateStarting)
		id := uuid.NewString()

		p.setState(num, StateServing)
		err := p.serve(num, id, listener)

		if err == nil || ctx.Err() != nil {
			// Listener closed: orderly exit.
			return nil
		}

		crashes++
		p.Logger.Error("worker exited abnormally",
			"worker", num,
			"worker_id", id,
			"crashes", crashes,
			"error", err)

		if crashes >= MaxCrashes {
			return fmt.Errorf("worker %d: giving up after %d crashes: %w", num, crashes, err)
		}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return nil
		}
	}
}

// runWorker serves the shared listener with its own dispatcher
// instance. A panic anywhere in the accept loop comes back as an
// error so the supervisor can apply its restart policy.
func (p *Pool) runWorker(num int, id string, listener net.Listener) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("worker %d panicked: %v", num, rec)
		}
	}()

	logger := p.Logger.With("worker", num, "worker_id", id)
	logger.Info("serving worker")

	srv := http.NewServer(fmt.Sprintf("worker-%d", num), p.Handler, logger)
	if p.IdleTimeout > 0 {
		srv.IdleTimeout = p.IdleTimeout
	}
	return srv.Serve(listener)
}

func (p *Pool) setState(num int, state State) {
	p.mu.Lock()
	p.states[num-1] = state
	p.mu.Unlock()
}

// WorkerStates returns a snapshot of every slot's state.
func (p *Pool) WorkerStates() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]State, len(p.states))
	copy(states, p.states)
	return states
}
