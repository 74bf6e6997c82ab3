package alpaca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// LoopInterval is the minimum pause between two Loop calls.
const LoopInterval = time.Millisecond

// ErrStopLoop is returned by Loop to end the runtime.
var ErrStopLoop = errors.New("stop loop")

// Worker is the periodic part of a driver. Loop polls the hardware and
// returns how long to wait before the next call.
type Worker interface {
	Loop(ctx context.Context) (time.Duration, error)
}

// Starter is implemented by workers needing a one-time initialization when
// the runtime starts.
type Starter interface {
	Startup(ctx context.Context) error
}

type RuntimeState int32

const (
	RuntimeCreated RuntimeState = iota
	RuntimeRunning
	RuntimeStopped
)

func (s RuntimeState) String() string {
	switch s {
	case RuntimeCreated:
		return "Created"
	case RuntimeRunning:
		return "Running"
	case RuntimeStopped:
		return "Stopped"
	}
	return "Unknown"
}

// TaskFunc is a side task run from the driver loop.
type TaskFunc func(ctx context.Context, now time.Time) error

// PeriodicTask runs at most once per interval of wall-clock time,
// independently of the loop cadence.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	run      TaskFunc
	last     time.Time
}

// Due reports whether the task should run at now.
func (t *PeriodicTask) Due(now time.Time) bool {
	return now.Sub(t.last) >= t.Interval
}

// Runtime owns the goroutine running a driver's worker loop.
type Runtime struct {
	worker Worker
	logger log.FieldLogger
	now    func() time.Time

	mu     sync.Mutex
	state  RuntimeState
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}
	tasks  []*PeriodicTask

	running atomic.Bool
	loops   atomic.Uint64
}

func NewRuntime(worker Worker, logger log.FieldLogger) *Runtime {
	return &Runtime{
		worker: worker,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// Wake cuts the current loop delay short so work queued by a request is
// picked up on the next pass.
func (r *Runtime) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// AddTask registers a side task run every interval from the loop goroutine.
// The first run happens one interval after the runtime starts.
func (r *Runtime) AddTask(name string, interval time.Duration, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, &PeriodicTask{Name: name, Interval: interval, run: fn, last: r.now()})
}

// Start launches the loop goroutine. A runtime can only be started once.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RuntimeCreated {
		return fmt.Errorf("runtime is %s", r.state)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state = RuntimeRunning
	r.running.Store(true)

	start := r.now()
	for _, t := range r.tasks {
		t.last = start
	}

	go r.run(ctx)
	return nil
}

// Stop asks the loop to end. It doesn't wait; use Wait for that.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RuntimeCreated:
		r.state = RuntimeStopped
		close(r.done)
	case RuntimeRunning:
		r.cancel()
	}
}

// Wait blocks until the loop goroutine has returned.
func (r *Runtime) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	<-done
}

// Close stops the runtime and waits for it.
func (r *Runtime) Close() {
	r.Stop()
	r.Wait()
}

func (r *Runtime) State() RuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsRunning reports whether the loop goroutine is active.
func (r *Runtime) IsRunning() bool {
	return r.running.Load()
}

// LoopCount is the number of completed Loop calls since start.
func (r *Runtime) LoopCount() uint64 {
	return r.loops.Load()
}

func (r *Runtime) run(ctx context.Context) {
	defer func() {
		r.running.Store(false)
		r.mu.Lock()
		r.state = RuntimeStopped
		r.mu.Unlock()
		close(r.done)
	}()

	r.loops.Store(0)

	if s, ok := r.worker.(Starter); ok {
		if err := r.safeStartup(ctx, s); err != nil {
			r.logger.Errorf("Startup failed: %v", err)
		}
	}

	timer := time.NewTimer(LoopInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		delay, err := r.safeLoop(ctx)
		if errors.Is(err, ErrStopLoop) {
			r.logger.Debug("Loop requested stop")
			return
		}
		if err != nil {
			r.logger.Errorf("Loop failed: %v", err)
		}

		r.runTasks(ctx)
		r.loops.Add(1)

		if delay < LoopInterval {
			delay = LoopInterval
		}
		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-r.wake:
			timer.Stop()
		}
	}
}

func (r *Runtime) runTasks(ctx context.Context) {
	now := r.now()

	r.mu.Lock()
	tasks := make([]*PeriodicTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.Due(now) {
			t.last = now
			tasks = append(tasks, t)
		}
	}
	r.mu.Unlock()

	for _, t := range tasks {
		if err := r.safeTask(ctx, t, now); err != nil {
			r.logger.Warnf("Task %s failed: %v", t.Name, err)
		}
	}
}

func (r *Runtime) safeStartup(ctx context.Context, s Starter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Startup(ctx)
}

func (r *Runtime) safeLoop(ctx context.Context) (delay time.Duration, err error) {
	defer func() {
		if p := recover(); p != nil {
			delay, err = 0, fmt.Errorf("panic: %v", p)
		}
	}()
	return r.worker.Loop(ctx)
}

func (r *Runtime) safeTask(ctx context.Context, t *PeriodicTask, now time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return t.run(ctx, now)
}
