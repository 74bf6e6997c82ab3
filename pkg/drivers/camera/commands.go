package camera

import "alpacapi/pkg/alpaca"

const (
	cmdCameraState = iota
	cmdCameraXSize
	cmdCameraYSize
	cmdCanAbortExposure
	cmdCanStopExposure
	cmdExposureMax
	cmdExposureMin
	cmdExposureResolution
	cmdImageReady
	cmdImageArray
	cmdLastExposureDuration
	cmdLastExposureStartTime
	cmdMaxADU
	cmdPercentCompleted
	cmdSensorType
	cmdBinX
	cmdBinY
	cmdNumX
	cmdNumY
	cmdStartX
	cmdStartY
	cmdAbortExposure
	cmdStartExposure
	cmdStopExposure
	cmdExtras
	cmdAutoExposure
	cmdExposureTime
	cmdStartVideo
	cmdStopVideo
)

var commands = alpaca.NewCommandTable(
	alpaca.CommandEntry{Name: "camerastate", ID: cmdCameraState, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "cameraxsize", ID: cmdCameraXSize, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "cameraysize", ID: cmdCameraYSize, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "canabortexposure", ID: cmdCanAbortExposure, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "canstopexposure", ID: cmdCanStopExposure, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "exposuremax", ID: cmdExposureMax, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "exposuremin", ID: cmdExposureMin, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "exposureresolution", ID: cmdExposureResolution, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "imageready", ID: cmdImageReady, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "imagearray", ID: cmdImageArray, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "lastexposureduration", ID: cmdLastExposureDuration, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "lastexposurestarttime", ID: cmdLastExposureStartTime, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "maxadu", ID: cmdMaxADU, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "percentcompleted", ID: cmdPercentCompleted, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "sensortype", ID: cmdSensorType, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "binx", ID: cmdBinX, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "biny", ID: cmdBinY, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "numx", ID: cmdNumX, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "numy", ID: cmdNumY, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "startx", ID: cmdStartX, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "starty", ID: cmdStartY, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "abortexposure", ID: cmdAbortExposure, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "startexposure", ID: cmdStartExposure, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "stopexposure", ID: cmdStopExposure, Verb: alpaca.VerbPut},

	alpaca.CommandEntry{Name: "--extras", ID: cmdExtras, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "autoexposure", ID: cmdAutoExposure, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "exposuretime", ID: cmdExposureTime, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "startvideo", ID: cmdStartVideo, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "stopvideo", ID: cmdStopVideo, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{},
)
