package alpaca

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResult struct {
	Status  int
	Header  http.Header
	Body    []byte
	Decoded map[string]any
}

func apiCall(t *testing.T, srv string, method, path string, params url.Values, accept string) apiResult {
	t.Helper()

	target := srv + path
	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if method == http.MethodPut {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	res := apiResult{Status: resp.StatusCode, Header: resp.Header, Body: data}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &res.Decoded), string(data))
	}
	return res
}

func TestDispatcherRejectsDuplicateDevices(t *testing.T) {
	_, err := NewDispatcher(NewTransactionCounter(), testLogger(), newTestDevice(0), newTestDevice(0))
	assert.Error(t, err)

	_, err = NewDispatcher(NewTransactionCounter(), testLogger(), newTestDevice(0), newTestDevice(1), newPlainDevice(0))
	assert.NoError(t, err)
}

func TestDispatcherHTTP(t *testing.T) {
	dev := newTestDevice(0)
	require.NoError(t, dev.Connect())
	dev.position = 42
	_, srv := newTestServer(t, dev, newPlainDevice(0))

	tests := []struct {
		name    string
		method  string
		path    string
		params  url.Values
		status  int
		code    ErrorCode
		message string
		value   any
	}{
		{
			name: "device command", method: http.MethodGet, path: "/api/v1/rotator/0/position",
			params: url.Values{"ClientTransactionID": {"17"}}, status: 200, value: 42.0,
		},
		{
			name: "mixed case path", method: http.MethodGet, path: "/api/v1/Rotator/0/Position",
			status: 200, value: 42.0,
		},
		{
			name: "common command", method: http.MethodGet, path: "/api/v1/rotator/0/name",
			status: 200, value: "Test rotator",
		},
		{
			name: "device error", method: http.MethodPut, path: "/api/v1/rotator/0/move",
			params: url.Values{"Position": {"400"}}, status: 200, code: InvalidValue, message: "Position 400 out of range",
		},
		{
			name: "missing keyword", method: http.MethodPut, path: "/api/v1/rotator/0/move",
			status: 400, code: InvalidValue, message: "Keyword 'Position' not specified",
		},
		{
			name: "unknown command", method: http.MethodGet, path: "/api/v1/rotator/0/frobnicate",
			status: 400, code: NotImplemented, message: "Unrecognized command 'frobnicate'",
		},
		{
			name: "separator is not a command", method: http.MethodGet, path: "/api/v1/rotator/0/--extras",
			status: 400, code: NotImplemented,
		},
		{
			name: "verb mismatch", method: http.MethodGet, path: "/api/v1/rotator/0/move",
			status: 200, code: NotImplemented,
		},
		{
			name: "device not found", method: http.MethodGet, path: "/api/v1/rotator/5/position",
			status: 400, code: NotImplemented, message: "Device Rotator/5 not found",
		},
		{
			name: "unknown device type", method: http.MethodGet, path: "/api/v1/toaster/0/position",
			status: 400, code: InvalidValue,
		},
		{
			name: "bad transaction id", method: http.MethodGet, path: "/api/v1/rotator/0/position",
			params: url.Values{"ClientTransactionID": {"-3"}}, status: 400, code: InvalidValue,
		},
		{
			name: "plain error", method: http.MethodGet, path: "/api/v1/rotator/0/fail",
			status: 200, code: UnspecifiedError, message: "hardware fault",
		},
		{
			name: "handler panic", method: http.MethodGet, path: "/api/v1/rotator/0/panic",
			status: 500, code: InternalError, message: "Internal error: boom",
		},
		{
			name: "invalid image", method: http.MethodGet, path: "/api/v1/rotator/0/badimage",
			status: 200, code: DataFailure,
		},
		{
			name: "action", method: http.MethodPut, path: "/api/v1/rotator/0/action",
			params: url.Values{"Action": {"park"}}, status: 200, code: ActionNotImplemented, message: "Action 'park' is not implemented",
		},
		{
			name: "commandblind", method: http.MethodPut, path: "/api/v1/rotator/0/commandblind",
			status: 200, code: NotImplemented,
		},
		{
			name: "livewindow", method: http.MethodPut, path: "/api/v1/rotator/0/livewindow",
			status: 200, code: NotImplemented,
		},
		{
			name: "restart unsupported", method: http.MethodPut, path: "/api/v1/switch/0/restart",
			status: 200, code: NotImplemented,
		},
		{
			name: "interface version", method: http.MethodGet, path: "/api/v1/switch/0/interfaceversion",
			status: 200, value: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := apiCall(t, srv.URL, tt.method, tt.path, tt.params, "")
			assert.Equal(t, tt.status, res.Status)
			require.NotNil(t, res.Decoded, string(res.Body))

			assert.Equal(t, float64(tt.code), res.Decoded["ErrorNumber"])
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Decoded["ErrorMessage"])
			}
			if tt.code != Success {
				assert.NotEmpty(t, res.Decoded["ErrorMessage"])
			}
			if tt.value != nil {
				assert.Equal(t, tt.value, res.Decoded["Value"])
			}
			if id := tt.params.Get("ClientTransactionID"); id == "17" {
				assert.Equal(t, 17.0, res.Decoded["ClientTransactionID"])
			}
			assert.NotZero(t, res.Decoded["ServerTransactionID"])
		})
	}
}

func TestDispatcherConnected(t *testing.T) {
	dev := newTestDevice(0)
	_, srv := newTestServer(t, dev)

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/connected", nil, "")
	assert.Equal(t, false, res.Decoded["Value"])

	res = apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/connected", url.Values{"Connected": {"True"}}, "")
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.True(t, dev.Connected())

	res = apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/connected", url.Values{"Connected": {"nope"}}, "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.True(t, dev.Connected())

	res = apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/disconnect", nil, "")
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.False(t, dev.Connected())

	res = apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/connect", nil, "")
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.True(t, dev.Connected())

	res = apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/connecting", nil, "")
	assert.Equal(t, false, res.Decoded["Value"])
}

func TestDispatcherMoveUpdatesDevice(t *testing.T) {
	dev := newTestDevice(0)
	_, srv := newTestServer(t, dev)

	res := apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/move", url.Values{"POSITION": {"12,5"}}, "")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.Equal(t, 12.5, dev.position)
}

func TestDispatcherSupportedActions(t *testing.T) {
	_, srv := newTestServer(t, newTestDevice(0))

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/supportedactions", nil, "")
	values, ok := res.Decoded["Value"].([]any)
	require.True(t, ok)

	var names []string
	for _, v := range values {
		names = append(names, v.(string))
	}
	assert.Equal(t, SupportedActions(newTestDevice(0)), names)
}

func TestDispatcherReadAll(t *testing.T) {
	dev := newTestDevice(0)
	dev.position = 90
	_, srv := newTestServer(t, dev)

	apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/position", nil, "")
	apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/fail", nil, "")

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/readall", nil, "")
	require.Equal(t, http.StatusOK, res.Status)

	assert.Equal(t, false, res.Decoded["connected"])
	assert.Equal(t, "Rotator under test", res.Decoded["description"])
	assert.Equal(t, "test driver", res.Decoded["driverinfo"])
	assert.Equal(t, "1.0", res.Decoded["driverversion"])
	assert.Equal(t, 3.0, res.Decoded["interfaceversion"])
	assert.Equal(t, "Test rotator", res.Decoded["name"])
	assert.Equal(t, 90.0, res.Decoded["position"])
	assert.Equal(t, 2.0, res.Decoded["totalcommands"])
	assert.Equal(t, 1.0, res.Decoded["totalerrors"])

	body := string(res.Body)
	assert.Less(t, strings.Index(body, `"connected"`), strings.Index(body, `"position"`))
	assert.Less(t, strings.Index(body, `"position"`), strings.Index(body, `"totalcommands"`))
	assert.Less(t, strings.Index(body, `"totalerrors"`), strings.Index(body, `"ClientTransactionID"`))
}

func TestDispatcherDeviceState(t *testing.T) {
	dev := newTestDevice(0)
	dev.position = 45
	_, srv := newTestServer(t, dev)

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/devicestate", nil, "")
	values, ok := res.Decoded["Value"].([]any)
	require.True(t, ok)
	require.Len(t, values, 2)

	assert.Equal(t, map[string]any{"Name": "Position", "Value": 45.0}, values[0])
	last := values[1].(map[string]any)
	assert.Equal(t, "TimeStamp", last["Name"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}$`, last["Value"])
}

func TestDispatcherTemperatureLog(t *testing.T) {
	dev := newTestDevice(0)
	dev.TemperatureLog().SetDescription("sensor")
	_, srv := newTestServer(t, dev)

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/temperaturelog", nil, "")
	assert.Equal(t, "sensor", res.Decoded["Description"])
	values, ok := res.Decoded["Value"].([]any)
	require.True(t, ok)
	assert.Len(t, values, TemperatureLogEntries)
}

func TestDispatcherRestart(t *testing.T) {
	dev := newTestDevice(0)
	_, srv := newTestServer(t, dev)

	res := apiCall(t, srv.URL, http.MethodPut, "/api/v1/rotator/0/restart", nil, "")
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.Equal(t, 1, dev.restarts)
}

func TestDispatcherImage(t *testing.T) {
	_, srv := newTestServer(t, newTestDevice(0))

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/imagearray", url.Values{"ClientTransactionID": {"8"}}, ImageBytesMimeType)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, ImageBytesMimeType, res.Header.Get("Content-Type"))
	require.Len(t, res.Body, 44+6*2)

	var hdr BinaryImageHeader
	require.NoError(t, hdr.UnmarshalBinary(res.Body))
	assert.Equal(t, uint32(8), hdr.ClientTransactionID)
	assert.Equal(t, int32(3), hdr.Dimension1)
	assert.Equal(t, int32(2), hdr.Dimension2)

	res = apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/imagearray", nil, "application/json")
	assert.Equal(t, 2.0, res.Decoded["Rank"])
	assert.Equal(t, []any{[]any{1.0, 2.0}, []any{3.0, 4.0}, []any{5.0, 6.0}}, res.Decoded["Value"])
}

func TestDispatcherImageEncodingFailure(t *testing.T) {
	_, srv := newTestServer(t, newTestDevice(0))

	res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/wideimage", url.Values{"ClientTransactionID": {"9"}}, ImageBytesMimeType)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, ImageBytesMimeType, res.Header.Get("Content-Type"))
	require.Greater(t, len(res.Body), BinaryHeaderSize)

	var hdr BinaryImageHeader
	require.NoError(t, hdr.UnmarshalBinary(res.Body))
	assert.Equal(t, int32(DataFailure), hdr.ErrorNumber)
	assert.Equal(t, uint32(9), hdr.ClientTransactionID)
	assert.NotZero(t, hdr.ServerTransactionID)
	assert.Equal(t, int32(BinaryHeaderSize), hdr.DataStart)
	assert.Equal(t, int32(0), hdr.Rank)
	assert.Equal(t, "Invalid image: element 1 (70000) does not fit in UInt16", string(res.Body[BinaryHeaderSize:]))

	// the same image is fine as JSON
	res = apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/wideimage", nil, "application/json")
	assert.Equal(t, 0.0, res.Decoded["ErrorNumber"])
	assert.Equal(t, []any{[]any{12.0}, []any{70000.0}}, res.Decoded["Value"])
}

func TestDispatcherServerTransactionIDs(t *testing.T) {
	d, srv := newTestServer(t, newTestDevice(0))

	const n = 50
	ids := make(chan float64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := apiCall(t, srv.URL, http.MethodGet, "/api/v1/rotator/0/name", nil, "")
			ids <- res.Decoded["ServerTransactionID"].(float64)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[float64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %v", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, uint32(n), d.Transactions().Current())
}

func TestProcessCommandStats(t *testing.T) {
	dev := newTestDevice(0)
	d, err := NewDispatcher(NewTransactionCounter(), testLogger(), dev)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Nil(t, d.ProcessCommand(ctx, dev, NewRequest(DeviceRotator, 0, "position", VerbGet, nil), NewResponse()))
	assert.NotNil(t, d.ProcessCommand(ctx, dev, NewRequest(DeviceRotator, 0, "move", VerbGet, nil), NewResponse()))
	assert.NotNil(t, d.ProcessCommand(ctx, dev, NewRequest(DeviceRotator, 0, "unknown", VerbGet, nil), NewResponse()))

	processed, errs := dev.Stats().Totals()
	assert.Equal(t, uint64(2), processed)
	assert.Equal(t, uint64(1), errs)

	stats := dev.Stats().Snapshot()
	require.Len(t, stats, 2)
	assert.Equal(t, "position", stats[0].Name)
	assert.Equal(t, uint64(1), stats[0].Get)
	assert.Equal(t, uint64(1), stats[1].Errors)
}
