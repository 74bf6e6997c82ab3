package alpaca

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type deviceKey struct {
	t DeviceType
	n int
}

// Dispatcher routes API calls to the device they name and serializes the
// result. Device commands are looked up in the device table first, then in
// the common table.
type Dispatcher struct {
	devices map[deviceKey]Device
	order   []Device
	txn     *TransactionCounter
	logger  log.FieldLogger
}

func NewDispatcher(txn *TransactionCounter, logger log.FieldLogger, devices ...Device) (*Dispatcher, error) {
	d := Dispatcher{
		devices: make(map[deviceKey]Device, len(devices)),
		txn:     txn,
		logger:  logger,
	}

	for _, dev := range devices {
		info := dev.DeviceInfo()
		key := deviceKey{info.Type, info.Number}
		if _, ok := d.devices[key]; ok {
			return nil, fmt.Errorf("duplicate device %s/%d", info.Type, info.Number)
		}
		for _, e := range dev.Commands().Entries() {
			if e.ID >= CmdCommonBase {
				return nil, fmt.Errorf("%s command %q uses reserved id %d", info.Type, e.Name, e.ID)
			}
		}
		d.devices[key] = dev
		d.order = append(d.order, dev)
	}

	return &d, nil
}

// Device finds a device by type and number.
func (d *Dispatcher) Device(t DeviceType, number int) (Device, bool) {
	dev, ok := d.devices[deviceKey{t, number}]
	return dev, ok
}

// Devices returns the devices in registration order.
func (d *Dispatcher) Devices() []Device {
	return d.order
}

// Transactions returns the shared transaction counter.
func (d *Dispatcher) Transactions() *TransactionCounter {
	return d.txn
}

// ProcessCommand runs one command against dev and fills resp. It returns nil
// on success. Handler panics are recovered and reported as InternalError.
func (d *Dispatcher) ProcessCommand(ctx context.Context, dev Device, req *Request, resp *Response) (aerr *Error) {
	id, verb := dev.Commands().Lookup(req.Command)
	common := false
	if id == CmdNotFound {
		id, verb = commonCommands.Lookup(req.Command)
		common = true
	}
	if id == CmdNotFound {
		return NewRequestError(NotImplemented, "Unrecognized command '%s'", req.Command)
	}

	defer func() {
		dev.Stats().Record(id, req.Command, req.Verb, aerr != nil)
	}()

	if !verb.Allows(req.Verb) {
		return NewError(NotImplemented, "Command '%s' does not support %s", req.Command, req.Verb)
	}

	defer func() {
		if p := recover(); p != nil {
			d.logger.Errorf("Panic processing %s/%d/%s: %v", req.DeviceType, req.DeviceNumber, req.Command, p)
			aerr = &Error{Code: InternalError, Message: fmt.Sprintf("Internal error: %v", p), status: http.StatusInternalServerError}
		}
	}()

	var err error
	if common {
		err = handleCommon(ctx, dev, id, req, resp)
	} else {
		err = dev.HandleCommand(ctx, id, req, resp)
	}

	if err != nil {
		aerr = AsError(err)
		d.logger.Debugf("%s/%d %s %s: %v", req.DeviceType, req.DeviceNumber, req.Verb, req.Command, aerr)
		return aerr
	}

	if img := resp.Image(); img != nil {
		if err := img.Validate(); err != nil {
			return NewError(DataFailure, "Invalid image: %v", err)
		}
	}
	return nil
}

// ServeHTTP answers /api/v1/{devicetype}/{devicenumber}/{command}.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := NewResponse()

	req, err := ParseRequest(r)
	if err != nil {
		d.write(w, req, resp, AsError(err))
		return
	}

	dev, ok := d.Device(req.DeviceType, req.DeviceNumber)
	if !ok {
		d.write(w, req, resp, NewRequestError(NotImplemented, "Device %s/%d not found", req.DeviceType, req.DeviceNumber))
		return
	}

	d.write(w, req, resp, d.ProcessCommand(r.Context(), dev, req, resp))
}

func (d *Dispatcher) write(w http.ResponseWriter, req *Request, resp *Response, aerr *Error) {
	t := Trailer{ServerTransactionID: d.txn.Next()}
	if req != nil {
		t.ClientTransactionID = req.ClientTransactionID
	}

	status := http.StatusOK
	if aerr != nil {
		t.ErrorNumber = aerr.Code
		t.ErrorMessage = aerr.Message
		status = aerr.HTTPStatus()
	}

	if resp.Binary(req) {
		// Encode before the status goes out so a bad image still gets a
		// framed error reply.
		var buf bytes.Buffer
		if err := WriteImageBytes(&buf, t, resp.Image()); err != nil {
			d.logger.Errorf("Error encoding image bytes: %v", err)
			t.ErrorNumber = DataFailure
			t.ErrorMessage = fmt.Sprintf("Invalid image: %v", err)
			buf.Reset()
			_ = WriteImageBytes(&buf, t, nil)
		}

		w.Header().Set("Content-Type", ImageBytesMimeType)
		w.WriteHeader(status)
		if _, err := w.Write(buf.Bytes()); err != nil {
			d.logger.Errorf("Error writing image bytes: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := resp.WriteJSON(w, t); err != nil {
		d.logger.Errorf("Error writing response: %v", err)
	}
}
