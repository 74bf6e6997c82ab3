package alpaca

import (
	"context"
	"time"
)

// CmdCommonBase is the first id of the common table. Device tables use ids
// below it.
const CmdCommonBase = 1000

const (
	CmdAction = CmdCommonBase + iota
	CmdCommandBlind
	CmdCommandBool
	CmdCommandString
	CmdConnected
	CmdConnect
	CmdConnecting
	CmdDescription
	CmdDeviceState
	CmdDisconnect
	CmdDriverInfo
	CmdDriverVersion
	CmdInterfaceVersion
	CmdName
	CmdSupportedActions
	CmdCommonExtras
	CmdLiveWindow
	CmdTemperatureLog
	CmdRestart
	CmdReadAll
)

var commonCommands = NewCommandTable(
	CommandEntry{"action", CmdAction, VerbPut},
	CommandEntry{"commandblind", CmdCommandBlind, VerbPut},
	CommandEntry{"commandbool", CmdCommandBool, VerbPut},
	CommandEntry{"commandstring", CmdCommandString, VerbPut},
	CommandEntry{"connected", CmdConnected, VerbBoth},
	CommandEntry{"connect", CmdConnect, VerbPut},
	CommandEntry{"connecting", CmdConnecting, VerbGet},
	CommandEntry{"description", CmdDescription, VerbGet},
	CommandEntry{"devicestate", CmdDeviceState, VerbGet},
	CommandEntry{"disconnect", CmdDisconnect, VerbPut},
	CommandEntry{"driverinfo", CmdDriverInfo, VerbGet},
	CommandEntry{"driverversion", CmdDriverVersion, VerbGet},
	CommandEntry{"interfaceversion", CmdInterfaceVersion, VerbGet},
	CommandEntry{"name", CmdName, VerbGet},
	CommandEntry{"supportedactions", CmdSupportedActions, VerbGet},

	CommandEntry{"--extras", CmdCommonExtras, VerbGet},
	CommandEntry{"livewindow", CmdLiveWindow, VerbPut},
	CommandEntry{"temperaturelog", CmdTemperatureLog, VerbGet},
	CommandEntry{"restart", CmdRestart, VerbPut},
	CommandEntry{"readall", CmdReadAll, VerbGet},
	CommandEntry{},
)

// CommonCommands returns the table shared by every device type.
func CommonCommands() *CommandTable {
	return commonCommands
}

// SupportedActions lists the device table followed by the common table.
func SupportedActions(dev Device) []string {
	names := dev.Commands().Names()
	return append(names, commonCommands.Names()...)
}

func handleCommon(ctx context.Context, dev Device, cmd int, req *Request, resp *Response) error {
	switch cmd {
	case CmdAction:
		action, _ := req.Params.Get("Action")
		return NewError(ActionNotImplemented, "Action '%s' is not implemented", action)

	case CmdCommandBlind, CmdCommandBool, CmdCommandString:
		return ErrMethodNotImplemented

	case CmdConnected:
		if req.Verb == VerbGet {
			resp.SetValue(dev.Connected())
			return nil
		}
		connected, err := req.Params.Bool("Connected")
		if err != nil {
			return err
		}
		if connected {
			return dev.Connect()
		}
		return dev.Disconnect()

	case CmdConnect:
		return dev.Connect()

	case CmdConnecting:
		resp.SetValue(dev.Connecting())

	case CmdDisconnect:
		return dev.Disconnect()

	case CmdDescription:
		resp.SetValue(dev.DeviceInfo().Description)

	case CmdDeviceState:
		state := dev.State()
		state = append(state, StateProperty{Name: "TimeStamp", Value: time.Now().UTC().Format("2006-01-02T15:04:05.000")})
		resp.SetValue(state)

	case CmdDriverInfo:
		resp.SetValue(dev.DriverInfo().Name)

	case CmdDriverVersion:
		resp.SetValue(dev.DriverInfo().Version)

	case CmdInterfaceVersion:
		resp.SetValue(dev.DriverInfo().InterfaceVersion)

	case CmdName:
		resp.SetValue(dev.DeviceInfo().Name)

	case CmdSupportedActions:
		resp.SetValue(SupportedActions(dev))

	case CmdTemperatureLog:
		tl, ok := dev.(TemperatureLogger)
		if !ok {
			return ErrNotImplemented
		}
		description, entries := tl.TemperatureLog().Snapshot()
		resp.AddString("Description", description)
		resp.SetValue(entries)

	case CmdRestart:
		r, ok := dev.(Restarter)
		if !ok {
			return ErrMethodNotImplemented
		}
		return r.Restart()

	case CmdReadAll:
		readAll(dev, resp)

	default:
		return ErrNotImplemented
	}

	return nil
}

// readAll answers the readall extension: every common property followed by
// the device specific ones, each as its own field.
func readAll(dev Device, resp *Response) {
	info := dev.DeviceInfo()
	driver := dev.DriverInfo()

	resp.AddBool("connected", dev.Connected())
	resp.AddString("description", info.Description)
	resp.AddString("driverinfo", driver.Name)
	resp.AddString("driverversion", driver.Version)
	resp.AddInt("interfaceversion", driver.InterfaceVersion)
	resp.AddString("name", info.Name)

	if ra, ok := dev.(ReadAller); ok {
		for _, p := range ra.ReadAll() {
			resp.Add(p.Name, p.Value)
		}
	}

	processed, errs := dev.Stats().Totals()
	resp.Add("totalcommands", processed)
	resp.Add("totalerrors", errs)
}
