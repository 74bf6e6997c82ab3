package camera

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"alpacapi/pkg/alpaca"

	log "github.com/sirupsen/logrus"
)

const (
	deviceName    = "Camera"
	driverName    = "AlpacaPi Camera Driver"
	driverVersion = "1.0"

	idleDelay    = 500 * time.Millisecond
	pictureDelay = 25 * time.Millisecond
	videoDelay   = 5 * time.Millisecond

	temperatureInterval = 30 * time.Second

	// FITS style timestamp used by lastexposurestarttime
	startTimeLayout = "2006-01-02T15:04:05.000"
)

// State is the internal state of the exposure state machine.
type State int

const (
	StateIdle State = iota
	StateTakingPicture
	StateStartVideo
	StateTakingVideo
)

var stateNames = map[State]string{
	StateIdle:          "Idle",
	StateTakingPicture: "TakingPicture",
	StateStartVideo:    "StartVideo",
	StateTakingVideo:   "TakingVideo",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// CameraState is the Alpaca CameraState value.
type CameraState int

const (
	CameraIdle CameraState = iota
	CameraWaiting
	CameraExposing
	CameraReading
	CameraDownload
	CameraError
)

// Config holds the settings of a camera driver.
type Config struct {
	Name         string
	Description  string
	AutoExposure bool
	// AdjustStep is the smallest auto-exposure correction.
	AdjustStep time.Duration
	// Exposure is the initial video exposure.
	Exposure time.Duration
}

// Properties is a snapshot of the camera state.
type Properties struct {
	State                State
	ImageReady           bool
	PercentCompleted     float64
	Exposure             time.Duration
	AutoExposure         bool
	ROI                  ROI
	LastExposureDuration time.Duration
	LastExposureStart    time.Time
	FramesRead           int
	ExposureFailures     int
	LastError            string
	Saturation           float64
	HistogramMax         float64
	Temperature          float64
	hasTemp              bool
	failed               bool
}

// CameraState derives the Alpaca camera state.
func (p Properties) CameraState() CameraState {
	switch p.State {
	case StateTakingPicture, StateStartVideo, StateTakingVideo:
		return CameraExposing
	}
	if p.failed {
		return CameraError
	}
	return CameraIdle
}

// Driver is an Alpaca camera running an exposure state machine on its
// runtime loop. Requests only update props and queue work; the sensor is
// driven from the loop, never with the lock held.
type Driver struct {
	*alpaca.Base

	sensor  Sensor
	info    SensorInfo
	runtime *alpaca.Runtime
	logger  log.FieldLogger
	now     func() time.Time

	mu     sync.RWMutex
	props  Properties
	limits ExposureLimits
	image  *Image

	// gen changes when a request ends or replaces the exposure, so results
	// of a superseded frame are dropped.
	gen      uint64
	exposing bool
	abort    bool
	stop     bool
}

func NewDriver(number int, cfg Config, sensor Sensor, logger log.FieldLogger) *Driver {
	if cfg.Name == "" {
		cfg.Name = deviceName
	}
	if cfg.AdjustStep <= 0 {
		cfg.AdjustStep = defaultAdjustStep
	}

	info := sensor.Info()
	if info.MaxBin <= 0 {
		info.MaxBin = 1
	}
	if cfg.Exposure <= 0 {
		cfg.Exposure = 100 * time.Millisecond
	}
	cfg.Exposure = min(max(cfg.Exposure, info.ExposureMin), info.ExposureMax)

	base := alpaca.NewBase(
		alpaca.DeviceInfo{
			Name:        cfg.Name,
			Description: cfg.Description,
			Type:        alpaca.DeviceCamera,
			Number:      number,
		},
		alpaca.DriverInfo{
			Name:             driverName,
			Version:          driverVersion,
			InterfaceVersion: 3,
		},
		logger,
	)

	d := &Driver{
		Base:   base,
		sensor: sensor,
		info:   info,
		logger: logger,
		now:    time.Now,
		limits: ExposureLimits{
			Min:  info.ExposureMin,
			Max:  info.ExposureMax,
			Step: cfg.AdjustStep,
		},
		props: Properties{
			Exposure:     cfg.Exposure,
			AutoExposure: cfg.AutoExposure,
			ROI: ROI{
				NumX: info.Width,
				NumY: info.Height,
				BinX: 1,
				BinY: 1,
			},
		},
	}

	d.runtime = alpaca.NewRuntime(d, logger.WithField("component", "runtime"))
	d.runtime.AddTask("temperaturelog", temperatureInterval, d.logTemperature)
	return d
}

func (d *Driver) Runtime() *alpaca.Runtime {
	return d.runtime
}

func (d *Driver) Commands() *alpaca.CommandTable {
	return commands
}

func (d *Driver) Properties() Properties {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.props
}

func (d *Driver) Info() SensorInfo {
	return d.info
}

// Limits are the bounds of the auto-exposure controller.
func (d *Driver) Limits() ExposureLimits {
	return d.limits
}

// Startup reads the temperature once so devicestate reports it right away.
func (d *Driver) Startup(ctx context.Context) error {
	return d.logTemperature(ctx, d.now())
}

func (d *Driver) logTemperature(ctx context.Context, now time.Time) error {
	temp, err := d.sensor.Temperature()
	if err != nil {
		return fmt.Errorf("failed to read temperature: %w", err)
	}

	d.mu.Lock()
	d.props.Temperature = temp
	d.props.hasTemp = true
	d.mu.Unlock()

	d.TemperatureLog().AddEntry(now, temp)
	return nil
}

// frameWork is what the loop picked up from the state machine.
type frameWork struct {
	gen      uint64
	state    State
	started  bool
	roi      ROI
	exposure time.Duration
	abort    bool
	stop     bool
}

// takeWork snapshots the state machine and clears the queued requests.
func (d *Driver) takeWork() frameWork {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := frameWork{
		gen:      d.gen,
		state:    d.props.State,
		started:  d.exposing,
		roi:      d.props.ROI,
		exposure: d.props.Exposure,
		abort:    d.abort,
		stop:     d.stop,
	}
	d.abort, d.stop = false, false
	return w
}

func frameDelay(state State) time.Duration {
	switch state {
	case StateTakingPicture:
		return pictureDelay
	case StateStartVideo, StateTakingVideo:
		return videoDelay
	}
	return idleDelay
}

// Loop advances the exposure state machine.
func (d *Driver) Loop(ctx context.Context) (time.Duration, error) {
	for {
		w := d.takeWork()
		if w.abort {
			d.abortSensor()
		}
		if w.stop {
			if err := d.sensor.Stop(); err != nil {
				d.logger.Errorf("Stop failed: %v", err)
			}
		}

		switch {
		case w.state == StateIdle:
			return idleDelay, nil
		case !w.started:
			return d.startFrame(w)
		}

		// a finished video frame is followed by the next one right away
		if !d.pollFrame(w) {
			return frameDelay(w.state), nil
		}
	}
}

func (d *Driver) imageFormat() ImageType {
	switch {
	case d.info.Type == SensorColor:
		return ImageRGB24
	case d.info.BitDepth > 8:
		return ImageRaw16
	}
	return ImageRaw8
}

func (d *Driver) abortSensor() {
	if err := d.sensor.Abort(); err != nil {
		d.logger.Errorf("Failed to reset sensor: %v", err)
	}
}

// startFrame begins a sensor exposure of the subframe in w.
func (d *Driver) startFrame(w frameWork) (time.Duration, error) {
	duration := min(max(w.exposure, d.info.ExposureMin), d.info.ExposureMax)
	err := d.sensor.StartExposure(w.roi, duration, d.imageFormat())
	start := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gen != w.gen {
		// cancelled meanwhile; the queued abort resets the sensor
		return frameDelay(d.props.State), nil
	}
	if err != nil {
		d.props.State = StateIdle
		d.props.LastError = "Failed to start exposure"
		d.props.failed = true
		return idleDelay, alpaca.NewError(alpaca.FailedToTakePicture, "Failed to start exposure: %v", err)
	}

	d.exposing = true
	d.props.LastExposureStart = start
	d.props.LastExposureDuration = duration
	d.props.PercentCompleted = 0
	if d.props.State == StateStartVideo {
		d.props.State = StateTakingVideo
	}
	return frameDelay(d.props.State), nil
}

// pollFrame checks the exposure in progress and reads out the frame once it
// is done. It reports whether a video frame ended and the next one is due.
func (d *Driver) pollFrame(w frameWork) bool {
	status, percent, err := d.sensor.CheckExposure()
	if err != nil {
		d.logger.Errorf("Exposure check failed: %v", err)
		status = ExposureFailed
	}

	var (
		img          *Image
		readErr      error
		saturation   float64
		histogramMax float64
	)
	switch status {
	case ExposureSuccess:
		if img, readErr = d.sensor.ReadImage(); readErr == nil {
			saturation = SaturationPercent(img)
			histogramMax = HistogramMaxPercent(img)
		}
	case ExposureFailed:
		d.abortSensor()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gen != w.gen {
		return false
	}

	video := w.state == StateTakingVideo
	switch status {
	case ExposureWorking:
		if !video {
			d.props.PercentCompleted = percent
		}
		return false

	case ExposureIdle:
		d.logger.Debug("Exposure reset to idle")

	case ExposureSuccess:
		d.props.PercentCompleted = 100
		switch {
		case readErr == nil:
			d.publishFrame(img, saturation, histogramMax)
		case video:
			d.logger.Errorf("Failed to read video frame: %v", readErr)
		default:
			d.logger.Errorf("Failed to read image: %v", readErr)
			d.props.LastError = readErr.Error()
			d.props.failed = true
		}

	case ExposureFailed:
		d.exposureFailed()
	}

	d.exposing = false
	if !video {
		d.props.State = StateIdle
	}
	return video
}

// exposureFailed records a failed exposure. Call with the lock held.
func (d *Driver) exposureFailed() {
	d.props.ExposureFailures++
	d.props.LastError = "Failed Taking picture"
	d.props.failed = true
	d.logger.Warnf("%s (%d failures)", d.props.LastError, d.props.ExposureFailures)
}

// publishFrame stores a read frame and runs the auto-exposure controller.
// Call with the lock held.
func (d *Driver) publishFrame(img *Image, saturation, histogramMax float64) {
	d.image = img
	d.props.ImageReady = true
	d.props.FramesRead++
	d.props.Saturation = saturation
	d.props.HistogramMax = histogramMax

	if d.props.AutoExposure {
		next := NextExposure(d.props.Exposure, d.limits, saturation, histogramMax)
		if next != d.props.Exposure {
			d.logger.Debugf("Auto exposure %v -> %v (saturation %.4f%%, histogram max %.1f%%)",
				d.props.Exposure, next, saturation, histogramMax)
		}
		d.props.Exposure = next
	}
}

func (d *Driver) validROI(roi ROI) bool {
	if roi.BinX < 1 || roi.BinX > d.info.MaxBin || roi.BinY < 1 || roi.BinY > d.info.MaxBin {
		return false
	}
	if roi.NumX < 1 || roi.NumY < 1 || roi.StartX < 0 || roi.StartY < 0 {
		return false
	}
	return roi.StartX+roi.NumX <= d.info.Width/roi.BinX && roi.StartY+roi.NumY <= d.info.Height/roi.BinY
}

func (d *Driver) validExposure(duration time.Duration) bool {
	return duration >= 0 && duration <= d.info.ExposureMax
}

// StartExposure queues a single exposure of the current subframe. Exposures
// shorter than the sensor minimum are taken at the minimum.
func (d *Driver) StartExposure(duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validExposure(duration) {
		return alpaca.NewError(alpaca.InvalidValue, "Invalid exposure time")
	}
	if !d.validROI(d.props.ROI) {
		return alpaca.NewError(alpaca.InvalidValue, "num, start,or bin is out of range")
	}
	if d.props.State != StateIdle {
		return alpaca.NewError(alpaca.CameraBusy, "Camera is busy (%s)", d.props.State)
	}

	d.gen++
	d.exposing = false
	d.props.Exposure = min(max(duration, d.info.ExposureMin), d.info.ExposureMax)
	d.props.ImageReady = false
	d.props.PercentCompleted = 0
	d.props.failed = false
	d.props.LastError = ""
	d.props.State = StateTakingPicture
	d.image = nil
	d.runtime.Wake()
	return nil
}

// cancelExposure drops the exposure in progress and has the loop reset the
// sensor. Call with the lock held.
func (d *Driver) cancelExposure() {
	d.gen++
	d.exposing = false
	d.abort = true
	d.stop = false
	d.props.State = StateIdle
	d.props.PercentCompleted = 0
	d.runtime.Wake()
}

// AbortExposure discards the exposure in progress.
func (d *Driver) AbortExposure() error {
	if !d.info.CanAbort {
		return alpaca.NewError(alpaca.InvalidOperation, "Abort exposure not supported")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.props.State != StateIdle {
		d.cancelExposure()
	}
	return nil
}

// StopExposure ends the exposure early; the partial frame is read out. An
// exposure the sensor has not started yet is dropped.
func (d *Driver) StopExposure() error {
	if !d.info.CanStop {
		return alpaca.NewError(alpaca.InvalidOperation, "Stop exposure not supported")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.props.State != StateTakingPicture:
	case !d.exposing:
		d.cancelExposure()
	default:
		d.stop = true
		d.runtime.Wake()
	}
	return nil
}

// StartVideo switches to continuous exposures at the current exposure time.
func (d *Driver) StartVideo() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.props.State != StateIdle {
		return alpaca.NewError(alpaca.CameraBusy, "Camera is busy (%s)", d.props.State)
	}
	if !d.validROI(d.props.ROI) {
		return alpaca.NewError(alpaca.InvalidValue, "num, start,or bin is out of range")
	}
	d.gen++
	d.exposing = false
	d.props.State = StateStartVideo
	d.props.failed = false
	d.runtime.Wake()
	return nil
}

func (d *Driver) StopVideo() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.props.State != StateStartVideo && d.props.State != StateTakingVideo {
		return alpaca.NewError(alpaca.InvalidOperation, "Camera is not in video mode")
	}
	d.cancelExposure()
	return nil
}

// SetExposure sets the exposure used by video mode and as the auto-exposure
// starting point.
func (d *Driver) SetExposure(exposure time.Duration) error {
	if exposure < d.info.ExposureMin || exposure > d.info.ExposureMax {
		return alpaca.NewError(alpaca.InvalidValue, "Invalid exposure time")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.props.Exposure = exposure
	return nil
}

func (d *Driver) SetAutoExposure(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props.AutoExposure = enabled
}

// Restart drops whatever the sensor is doing and clears the error state.
func (d *Driver) Restart() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelExposure()
	d.props.failed = false
	d.props.LastError = ""
	d.logger.Info("Camera restarted")
	return nil
}

// ImageArray returns the last frame in transfer layout.
func (d *Driver) ImageArray() (*alpaca.ImageArray, error) {
	d.mu.RLock()
	img, ready := d.image, d.props.ImageReady
	d.mu.RUnlock()

	if !ready || img == nil {
		return nil, alpaca.NewError(alpaca.InvalidOperation, "No image available")
	}
	arr, err := img.ImageArray()
	if err != nil {
		return nil, alpaca.NewError(alpaca.DataFailure, "Invalid image: %v", err)
	}
	return arr, nil
}

func (d *Driver) setROI(update func(roi *ROI)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	update(&d.props.ROI)
}

func seconds(v time.Duration) float64 {
	return v.Seconds()
}

func fromSeconds(s float64) (time.Duration, bool) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 || s > absoluteMaxExposure.Seconds() {
		return 0, false
	}
	return time.Duration(math.Round(s*1e6)) * time.Microsecond, true
}

func (d *Driver) State() []alpaca.StateProperty {
	p := d.Properties()
	props := []alpaca.StateProperty{
		{Name: "CameraState", Value: int(p.CameraState())},
		{Name: "ImageReady", Value: p.ImageReady},
		{Name: "PercentCompleted", Value: int(p.PercentCompleted)},
	}
	if p.hasTemp {
		props = append(props, alpaca.StateProperty{Name: "CCDTemperature", Value: p.Temperature})
	}
	return props
}

func (d *Driver) ReadAll() []alpaca.StateProperty {
	p := d.Properties()
	return []alpaca.StateProperty{
		{Name: "autoexposure", Value: p.AutoExposure},
		{Name: "binx", Value: p.ROI.BinX},
		{Name: "biny", Value: p.ROI.BinY},
		{Name: "camerastate", Value: int(p.CameraState())},
		{Name: "cameraxsize", Value: d.info.Width},
		{Name: "cameraysize", Value: d.info.Height},
		{Name: "canabortexposure", Value: d.info.CanAbort},
		{Name: "canstopexposure", Value: d.info.CanStop},
		{Name: "exposuremax", Value: seconds(d.info.ExposureMax)},
		{Name: "exposuremin", Value: seconds(d.info.ExposureMin)},
		{Name: "exposuretime", Value: seconds(p.Exposure)},
		{Name: "exposurefailures", Value: p.ExposureFailures},
		{Name: "framesread", Value: p.FramesRead},
		{Name: "histogrammax", Value: p.HistogramMax},
		{Name: "imageready", Value: p.ImageReady},
		{Name: "internalstate", Value: p.State.String()},
		{Name: "maxadu", Value: d.info.MaxADU()},
		{Name: "numx", Value: p.ROI.NumX},
		{Name: "numy", Value: p.ROI.NumY},
		{Name: "percentcompleted", Value: int(p.PercentCompleted)},
		{Name: "saturation", Value: p.Saturation},
		{Name: "sensortype", Value: int(d.info.Type)},
		{Name: "startx", Value: p.ROI.StartX},
		{Name: "starty", Value: p.ROI.StartY},
	}
}

func (d *Driver) SetupFields() []alpaca.SetupField {
	p := d.Properties()
	return []alpaca.SetupField{
		{Name: "description", Label: "Description", Value: d.DeviceInfo().Description},
		{Name: "autoexposure", Label: "Auto exposure", Value: strconv.FormatBool(p.AutoExposure)},
		{Name: "exposuretime", Label: "Exposure (seconds)", Value: strconv.FormatFloat(seconds(p.Exposure), 'f', 6, 64)},
	}
}

func (d *Driver) SaveSetup(params alpaca.Params) error {
	if v, ok := params.Get("description"); ok {
		d.SetDescription(v)
	}
	if _, ok := params.Get("autoexposure"); ok {
		enabled, err := params.Bool("autoexposure")
		if err != nil {
			return err
		}
		d.SetAutoExposure(enabled)
	}
	if _, ok := params.Get("exposuretime"); ok {
		s, err := params.Float("exposuretime")
		if err != nil {
			return err
		}
		exposure, ok := fromSeconds(s)
		if !ok {
			return alpaca.NewError(alpaca.InvalidValue, "Invalid exposure time")
		}
		return d.SetExposure(exposure)
	}
	return nil
}

// Commands answered without a connection.
var staticCommands = map[int]bool{
	cmdCameraXSize:        true,
	cmdCameraYSize:        true,
	cmdCanAbortExposure:   true,
	cmdCanStopExposure:    true,
	cmdExposureMax:        true,
	cmdExposureMin:        true,
	cmdExposureResolution: true,
	cmdMaxADU:             true,
	cmdSensorType:         true,
}

func (d *Driver) HandleCommand(ctx context.Context, cmd int, req *alpaca.Request, resp *alpaca.Response) error {
	if cmd == cmdImageArray {
		resp.OfferImageBytes()
	}
	if !staticCommands[cmd] {
		if err := d.RequireConnected(); err != nil {
			return err
		}
	}

	switch cmd {
	case cmdCameraXSize:
		resp.SetValue(d.info.Width)
	case cmdCameraYSize:
		resp.SetValue(d.info.Height)
	case cmdCanAbortExposure:
		resp.SetValue(d.info.CanAbort)
	case cmdCanStopExposure:
		resp.SetValue(d.info.CanStop)
	case cmdExposureMax:
		resp.SetValue(seconds(d.info.ExposureMax))
	case cmdExposureMin:
		resp.SetValue(seconds(d.info.ExposureMin))
	case cmdExposureResolution:
		resp.SetValue(seconds(time.Microsecond))
	case cmdMaxADU:
		resp.SetValue(d.info.MaxADU())
	case cmdSensorType:
		resp.SetValue(int(d.info.Type))

	case cmdCameraState:
		resp.SetValue(int(d.Properties().CameraState()))
	case cmdImageReady:
		resp.SetValue(d.Properties().ImageReady)
	case cmdPercentCompleted:
		resp.SetValue(int(d.Properties().PercentCompleted))

	case cmdImageArray:
		arr, err := d.ImageArray()
		if err != nil {
			return err
		}
		resp.SetImage(arr)

	case cmdLastExposureDuration, cmdLastExposureStartTime:
		p := d.Properties()
		if p.LastExposureStart.IsZero() {
			return alpaca.NewError(alpaca.ValueNotSet, "No exposure has been taken")
		}
		if cmd == cmdLastExposureDuration {
			resp.SetValue(seconds(p.LastExposureDuration))
		} else {
			resp.SetValue(p.LastExposureStart.UTC().Format(startTimeLayout))
		}

	case cmdBinX, cmdBinY, cmdNumX, cmdNumY, cmdStartX, cmdStartY:
		return d.handleROI(cmd, req, resp)

	case cmdStartExposure:
		s, err := req.Params.Float("Duration")
		if err != nil {
			return err
		}
		if _, err := req.Params.Bool("Light"); err != nil {
			return err
		}
		duration, ok := fromSeconds(s)
		if !ok {
			return alpaca.NewError(alpaca.InvalidValue, "Invalid exposure time")
		}
		return d.StartExposure(duration)

	case cmdAbortExposure:
		return d.AbortExposure()
	case cmdStopExposure:
		return d.StopExposure()
	case cmdStartVideo:
		return d.StartVideo()
	case cmdStopVideo:
		return d.StopVideo()

	case cmdAutoExposure:
		if req.Verb == alpaca.VerbGet {
			resp.SetValue(d.Properties().AutoExposure)
			return nil
		}
		enabled, err := req.Params.Bool("AutoExposure")
		if err != nil {
			return err
		}
		d.SetAutoExposure(enabled)

	case cmdExposureTime:
		if req.Verb == alpaca.VerbGet {
			resp.SetValue(seconds(d.Properties().Exposure))
			return nil
		}
		s, err := req.Params.Float("ExposureTime")
		if err != nil {
			return err
		}
		exposure, ok := fromSeconds(s)
		if !ok {
			return alpaca.NewError(alpaca.InvalidValue, "Invalid exposure time")
		}
		return d.SetExposure(exposure)

	default:
		return alpaca.ErrNotImplemented
	}
	return nil
}

var roiKeywords = map[int]string{
	cmdBinX:   "BinX",
	cmdBinY:   "BinY",
	cmdNumX:   "NumX",
	cmdNumY:   "NumY",
	cmdStartX: "StartX",
	cmdStartY: "StartY",
}

func roiField(roi *ROI, cmd int) *int {
	switch cmd {
	case cmdBinX:
		return &roi.BinX
	case cmdBinY:
		return &roi.BinY
	case cmdNumX:
		return &roi.NumX
	case cmdNumY:
		return &roi.NumY
	case cmdStartX:
		return &roi.StartX
	default:
		return &roi.StartY
	}
}

func (d *Driver) handleROI(cmd int, req *alpaca.Request, resp *alpaca.Response) error {
	if req.Verb == alpaca.VerbGet {
		roi := d.Properties().ROI
		resp.SetValue(*roiField(&roi, cmd))
		return nil
	}

	v, err := req.Params.Int(roiKeywords[cmd])
	if err != nil {
		return err
	}
	switch cmd {
	case cmdBinX, cmdBinY:
		if v < 1 || v > d.info.MaxBin {
			return alpaca.NewError(alpaca.InvalidValue, "Bin value %d out of range [1,%d]", v, d.info.MaxBin)
		}
	default:
		if v < 0 {
			return alpaca.NewError(alpaca.InvalidValue, "Value %d out of range", v)
		}
	}

	d.setROI(func(roi *ROI) {
		*roiField(roi, cmd) = v
	})
	return nil
}
