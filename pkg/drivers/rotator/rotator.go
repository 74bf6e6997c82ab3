package rotator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"alpacapi/pkg/alpaca"

	log "github.com/sirupsen/logrus"
)

const (
	deviceName    = "Rotator"
	driverName    = "AlpacaPi Rotator Driver"
	driverVersion = "1.0"

	idlePoll   = 2 * time.Second
	movingPoll = 100 * time.Millisecond
)

// Properties is a consistent snapshot of the rotator state. Angles are in
// degrees within [0,360).
type Properties struct {
	CanReverse         bool
	IsMoving           bool
	MechanicalPosition float64
	Position           float64
	Reverse            bool
	StepSize           float64
	SyncOffset         float64
	TargetPosition     float64
}

// Config holds the static settings of a rotator.
type Config struct {
	Name             string
	Description      string
	CanReverse       bool
	InterfaceVersion int
}

// OffsetStore persists the sync offset.
type OffsetStore interface {
	Get(key string, v any) error
	Put(key string, v any) error
}

type motionKind int

const (
	motionMove motionKind = iota
	motionHalt
)

// motion is a mechanism command queued by a request for the loop.
type motion struct {
	kind motionKind
	step int
}

// Driver is an Alpaca rotator. The reported position is the mechanical
// position plus a persisted sync offset.
//
// Requests only touch props; the mechanism is driven from Loop, outside
// the lock.
type Driver struct {
	*alpaca.Base

	mech    Mechanism
	steps   int
	store   OffsetStore
	runtime *alpaca.Runtime
	logger  log.FieldLogger

	mu         sync.RWMutex
	props      Properties
	pending    *motion
	reverse    *bool
	saveOffset bool
}

func NewDriver(number int, cfg Config, mech Mechanism, store OffsetStore, logger log.FieldLogger) (*Driver, error) {
	if cfg.Name == "" {
		cfg.Name = deviceName
	}
	if cfg.InterfaceVersion == 0 {
		cfg.InterfaceVersion = 3
	}

	base := alpaca.NewBase(
		alpaca.DeviceInfo{
			Name:        cfg.Name,
			Description: cfg.Description,
			Type:        alpaca.DeviceRotator,
			Number:      number,
		},
		alpaca.DriverInfo{
			Name:             driverName,
			Version:          driverVersion,
			InterfaceVersion: cfg.InterfaceVersion,
		},
		logger,
	)

	d := Driver{
		Base:   base,
		mech:   mech,
		steps:  mech.StepsPerRev(),
		store:  store,
		logger: logger,
		props: Properties{
			CanReverse: cfg.CanReverse,
			StepSize:   360.0 / float64(mech.StepsPerRev()),
		},
	}

	offset, err := d.loadSyncOffset()
	if err != nil {
		return nil, fmt.Errorf("failed to load sync offset: %v", err)
	}
	d.props.SyncOffset = offset

	d.runtime = alpaca.NewRuntime(&d, logger.WithField("component", "runtime"))
	return &d, nil
}

func (d *Driver) Runtime() *alpaca.Runtime {
	return d.runtime
}

func (d *Driver) Commands() *alpaca.CommandTable {
	return commands
}

func (d *Driver) syncOffsetKey() string {
	return "rotator/" + strconv.Itoa(d.DeviceInfo().Number) + "/syncoffset"
}

func (d *Driver) loadSyncOffset() (float64, error) {
	var offset float64
	if err := d.store.Get(d.syncOffsetKey(), &offset); err != nil {
		if errors.Is(err, alpaca.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return normalizeAngle(offset), nil
}

// Startup reads the mechanical position and aligns the target with it.
func (d *Driver) Startup(ctx context.Context) error {
	return d.updateRotorPosition(true)
}

// Loop sends queued commands to the mechanism and polls it, faster while
// it moves.
func (d *Driver) Loop(ctx context.Context) (time.Duration, error) {
	d.mu.Lock()
	m, reverse, save := d.pending, d.reverse, d.saveOffset
	offset := d.props.SyncOffset
	d.pending, d.reverse, d.saveOffset = nil, nil, false
	d.mu.Unlock()

	if save {
		if err := d.store.Put(d.syncOffsetKey(), offset); err != nil {
			d.logger.Errorf("Failed to save sync offset: %v", err)
		}
	}
	if reverse != nil {
		if err := d.mech.SetReverse(*reverse); err != nil {
			d.logger.Errorf("Failed to set reverse: %v", err)
		}
	}

	resetTarget := false
	var cmdErr error
	if m != nil {
		switch m.kind {
		case motionHalt:
			resetTarget = true
			if err := d.mech.Halt(); err != nil {
				cmdErr = fmt.Errorf("halt failed: %w", err)
			}
		case motionMove:
			if err := d.mech.MoveToStep(m.step); err != nil {
				resetTarget = true
				cmdErr = fmt.Errorf("move to step %d failed: %w", m.step, err)
			}
		}
	}

	if err := d.updateRotorPosition(resetTarget); err != nil {
		return idlePoll, err
	}
	if cmdErr != nil {
		return idlePoll, cmdErr
	}
	if d.Properties().IsMoving {
		return movingPoll, nil
	}
	return idlePoll, nil
}

func (d *Driver) stepsToDegrees(step int) float64 {
	return normalizeAngle(float64(step) * 360.0 / float64(d.steps))
}

func (d *Driver) degreesToSteps(deg float64) int {
	return wrapStep(int(math.Round(normalizeAngle(deg)*float64(d.steps)/360.0)), d.steps)
}

// updateRotorPosition refreshes the mechanical and logical positions from
// the hardware. With updateTarget the target is reset to the position.
// A command queued meanwhile keeps the rotor reported as moving.
func (d *Driver) updateRotorPosition(updateTarget bool) error {
	step, err := d.mech.CurrentStep()
	if err != nil {
		return fmt.Errorf("failed to read rotator position: %w", err)
	}
	moving, err := d.mech.IsMoving()
	if err != nil {
		return fmt.Errorf("failed to read rotator state: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.props.MechanicalPosition = d.stepsToDegrees(step)
	d.props.Position = normalizeAngle(d.props.MechanicalPosition + d.props.SyncOffset)
	d.props.IsMoving = moving || d.pending != nil
	if updateTarget && d.pending == nil {
		d.props.TargetPosition = d.props.Position
	}
	return nil
}

// Properties returns a snapshot of the rotator state.
func (d *Driver) Properties() Properties {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.props
}

// setPosition queues a move to the logical angle target. Call with the
// lock held and wake the runtime after releasing it.
func (d *Driver) setPosition(target float64) {
	mechTarget := normalizeAngle(target - d.props.SyncOffset)
	d.pending = &motion{kind: motionMove, step: d.degreesToSteps(mechTarget)}
	d.props.TargetPosition = target
	d.props.IsMoving = true
}

func (d *Driver) moveTo(target func(p *Properties) float64) {
	d.mu.Lock()
	d.setPosition(target(&d.props))
	d.mu.Unlock()
	d.runtime.Wake()
}

func validAngle(deg float64) error {
	if deg < 0 || deg >= 360 || math.IsNaN(deg) {
		return alpaca.NewError(alpaca.InvalidValue, "Value is out of range")
	}
	return nil
}

// Move rotates by delta degrees relative to the current target.
func (d *Driver) Move(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return alpaca.NewError(alpaca.InvalidValue, "Value is out of range")
	}

	d.moveTo(func(p *Properties) float64 {
		return normalizeAngle(p.TargetPosition + delta)
	})
	return nil
}

// MoveAbsolute rotates to a logical angle in [0,360).
func (d *Driver) MoveAbsolute(position float64) error {
	if err := validAngle(position); err != nil {
		return err
	}

	d.moveTo(func(p *Properties) float64 {
		return position
	})
	return nil
}

// MoveMechanical rotates to a mechanical angle in [0,360), ignoring the sync offset.
func (d *Driver) MoveMechanical(position float64) error {
	if err := validAngle(position); err != nil {
		return err
	}

	d.moveTo(func(p *Properties) float64 {
		return normalizeAngle(position + p.SyncOffset)
	})
	return nil
}

// Sync makes the last polled position read as position without moving.
// The loop persists the new offset.
func (d *Driver) Sync(position float64) error {
	if err := validAngle(position); err != nil {
		return err
	}

	d.mu.Lock()
	d.props.SyncOffset = normalizeAngle(position - d.props.MechanicalPosition)
	d.props.Position = normalizeAngle(d.props.MechanicalPosition + d.props.SyncOffset)
	d.props.TargetPosition = d.props.Position
	d.saveOffset = true
	offset := d.props.SyncOffset
	d.mu.Unlock()

	d.logger.Infof("Synced to %.3f, offset %.3f", position, offset)
	d.runtime.Wake()
	return nil
}

// Step moves by a number of motor steps from the last polled position.
func (d *Driver) Step(steps int) error {
	d.moveTo(func(p *Properties) float64 {
		target := wrapStep(d.degreesToSteps(p.MechanicalPosition)+steps, d.steps)
		return normalizeAngle(d.stepsToDegrees(target) + p.SyncOffset)
	})
	return nil
}

// StepAbsolute moves to a motor step in [0, StepsPerRev).
func (d *Driver) StepAbsolute(step int) error {
	if step < 0 || step >= d.steps {
		return alpaca.NewError(alpaca.InvalidValue, "Value is out of range")
	}

	d.moveTo(func(p *Properties) float64 {
		return normalizeAngle(d.stepsToDegrees(step) + p.SyncOffset)
	})
	return nil
}

// Halt stops the motion. Once the loop has stopped the mechanism the target
// is reset to where the rotator stopped.
func (d *Driver) Halt() error {
	d.mu.Lock()
	d.pending = &motion{kind: motionHalt}
	d.mu.Unlock()
	d.runtime.Wake()
	return nil
}

func (d *Driver) reverseSupported() bool {
	return d.Properties().CanReverse || d.DriverInfo().InterfaceVersion >= 3
}

func (d *Driver) Reverse() (bool, error) {
	if !d.reverseSupported() {
		return false, alpaca.ErrPropertyNotImplemented
	}
	return d.Properties().Reverse, nil
}

func (d *Driver) SetReverse(reverse bool) error {
	if !d.reverseSupported() {
		return alpaca.ErrPropertyNotImplemented
	}

	d.mu.Lock()
	d.props.Reverse = reverse
	d.reverse = &reverse
	d.mu.Unlock()
	d.runtime.Wake()
	return nil
}

func (d *Driver) State() []alpaca.StateProperty {
	p := d.Properties()
	return []alpaca.StateProperty{
		{Name: "IsMoving", Value: p.IsMoving},
		{Name: "MechanicalPosition", Value: p.MechanicalPosition},
		{Name: "Position", Value: p.Position},
	}
}

func (d *Driver) ReadAll() []alpaca.StateProperty {
	p := d.Properties()
	return []alpaca.StateProperty{
		{Name: "canreverse", Value: p.CanReverse},
		{Name: "ismoving", Value: p.IsMoving},
		{Name: "mechanicalposition", Value: p.MechanicalPosition},
		{Name: "position", Value: p.Position},
		{Name: "reverse", Value: p.Reverse},
		{Name: "stepsize", Value: p.StepSize},
		{Name: "syncoffset", Value: p.SyncOffset},
		{Name: "targetposition", Value: p.TargetPosition},
	}
}

func (d *Driver) SetupFields() []alpaca.SetupField {
	return []alpaca.SetupField{
		{Name: "description", Label: "Description", Value: d.DeviceInfo().Description},
		{Name: "syncoffset", Label: "Sync offset (degrees)", Value: strconv.FormatFloat(d.Properties().SyncOffset, 'f', 3, 64)},
	}
}

// SaveSetup applies the setup form values.
func (d *Driver) SaveSetup(params alpaca.Params) error {
	if v, ok := params.Get("description"); ok {
		d.SetDescription(v)
	}
	if _, ok := params.Get("syncoffset"); ok {
		offset, err := params.Float("syncoffset")
		if err != nil {
			return err
		}
		offset = normalizeAngle(offset)

		d.mu.Lock()
		d.props.SyncOffset = offset
		d.props.Position = normalizeAngle(d.props.MechanicalPosition + offset)
		d.props.TargetPosition = d.props.Position
		d.mu.Unlock()

		if err := d.store.Put(d.syncOffsetKey(), offset); err != nil {
			return fmt.Errorf("failed to save sync offset: %v", err)
		}
	}
	return nil
}

func (d *Driver) HandleCommand(ctx context.Context, cmd int, req *alpaca.Request, resp *alpaca.Response) error {
	switch cmd {
	case cmdCanReverse:
		resp.SetValue(d.Properties().CanReverse)
		return nil
	case cmdStepSize:
		resp.SetValue(d.Properties().StepSize)
		return nil
	}

	if err := d.RequireConnected(); err != nil {
		return err
	}

	switch cmd {
	case cmdIsMoving:
		resp.SetValue(d.Properties().IsMoving)

	case cmdMechanicalPosition:
		resp.SetValue(d.Properties().MechanicalPosition)

	case cmdPosition:
		resp.SetValue(d.Properties().Position)

	case cmdTargetPosition:
		resp.SetValue(d.Properties().TargetPosition)

	case cmdReverse:
		if req.Verb == alpaca.VerbGet {
			reverse, err := d.Reverse()
			if err != nil {
				return err
			}
			resp.SetValue(reverse)
			return nil
		}
		reverse, err := req.Params.Bool("Reverse")
		if err != nil {
			return err
		}
		return d.SetReverse(reverse)

	case cmdHalt:
		return d.Halt()

	case cmdMove, cmdMoveAbsolute, cmdMoveMechanical, cmdSync:
		position, err := req.Params.Float("Position")
		if err != nil {
			return err
		}
		switch cmd {
		case cmdMove:
			return d.Move(position)
		case cmdMoveAbsolute:
			return d.MoveAbsolute(position)
		case cmdMoveMechanical:
			return d.MoveMechanical(position)
		default:
			return d.Sync(position)
		}

	case cmdStep, cmdStepAbsolute:
		steps, err := req.Params.Int("Position")
		if err != nil {
			return err
		}
		if cmd == cmdStep {
			return d.Step(steps)
		}
		return d.StepAbsolute(steps)

	default:
		return alpaca.ErrNotImplemented
	}

	return nil
}
