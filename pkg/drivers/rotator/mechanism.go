package rotator

import (
	"fmt"
	"sync"
	"time"
)

// Mechanism is the rotator hardware, addressed in motor steps in
// [0, StepsPerRev). Calls must return quickly; moves run in the background.
type Mechanism interface {
	StepsPerRev() int
	CurrentStep() (int, error)
	IsMoving() (bool, error)
	MoveToStep(step int) error
	Halt() error
	SetReverse(reverse bool) error
}

const (
	defaultStepsPerRev = 1000
	defaultStepRate    = 200 // steps per second
)

// Simulator is a stepper rotator moving at a constant rate along the
// shortest path to its target.
type Simulator struct {
	mu          sync.Mutex
	stepsPerRev int
	rate        float64
	now         func() time.Time

	start     int
	delta     int
	startTime time.Time
	reverse   bool
}

// NewSimulator creates a simulated mechanism. Zero values select 1000 steps
// per revolution and 200 steps per second.
func NewSimulator(stepsPerRev int, stepsPerSecond float64) *Simulator {
	if stepsPerRev <= 0 {
		stepsPerRev = defaultStepsPerRev
	}
	if stepsPerSecond <= 0 {
		stepsPerSecond = defaultStepRate
	}
	return &Simulator{
		stepsPerRev: stepsPerRev,
		rate:        stepsPerSecond,
		now:         time.Now,
	}
}

func (s *Simulator) StepsPerRev() int {
	return s.stepsPerRev
}

// travelled returns how many steps of the current move are done. Call with
// the lock held.
func (s *Simulator) travelled(now time.Time) int {
	if s.delta == 0 {
		return 0
	}
	n := int(now.Sub(s.startTime).Seconds() * s.rate)
	if n >= abs(s.delta) {
		return s.delta
	}
	if s.delta < 0 {
		return -n
	}
	return n
}

func (s *Simulator) position(now time.Time) int {
	return wrapStep(s.start+s.travelled(now), s.stepsPerRev)
}

func (s *Simulator) CurrentStep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position(s.now()), nil
}

func (s *Simulator) IsMoving() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delta != 0 && s.travelled(s.now()) != s.delta, nil
}

func (s *Simulator) MoveToStep(step int) error {
	if step < 0 || step >= s.stepsPerRev {
		return fmt.Errorf("step %d out of range [0,%d)", step, s.stepsPerRev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur := s.position(now)

	delta := wrapStep(step-cur, s.stepsPerRev)
	if delta > s.stepsPerRev/2 {
		delta -= s.stepsPerRev
	}

	s.start = cur
	s.delta = delta
	s.startTime = now
	return nil
}

func (s *Simulator) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start = s.position(s.now())
	s.delta = 0
	return nil
}

// SetReverse flips the motor direction. Positions are reported in the
// logical direction either way.
func (s *Simulator) SetReverse(reverse bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverse = reverse
	return nil
}

// MotorDirection is the physical direction of the current move: 1, -1 or 0.
func (s *Simulator) MotorDirection() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := 0
	switch {
	case s.delta > 0:
		dir = 1
	case s.delta < 0:
		dir = -1
	}
	if s.reverse {
		dir = -dir
	}
	return dir
}

func wrapStep(step, n int) int {
	step %= n
	if step < 0 {
		step += n
	}
	return step
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
