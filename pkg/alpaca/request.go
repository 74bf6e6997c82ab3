package alpaca

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxBodySize = 1 << 20

// Params holds the keyword/value pairs of a request. Keys are lower-cased,
// so lookups are case-insensitive.
type Params map[string]string

// ParseParams decodes a "key=value&key=value" string. Only the first value
// of a repeated key is kept.
func ParseParams(raw string) (Params, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return paramsFromValues(values), nil
}

func paramsFromValues(values url.Values) Params {
	params := make(Params, len(values))
	for key, value := range values {
		k := strings.ToLower(key)
		if _, ok := params[k]; ok || len(value) == 0 {
			continue
		}
		params[k] = value[0]
	}
	return params
}

// Get returns the raw value for key.
func (p Params) Get(key string) (string, bool) {
	v, ok := p[strings.ToLower(key)]
	return v, ok
}

// String returns the value for key or an InvalidValue error when missing.
func (p Params) String(key string) (string, error) {
	v, ok := p.Get(key)
	if !ok {
		return "", NewRequestError(InvalidValue, "Keyword '%s' not specified", key)
	}
	return v, nil
}

// Float parses a numeric argument. A decimal comma is accepted.
func (p Params) Float(key string) (float64, error) {
	v, err := p.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
	if err != nil {
		return 0, NewRequestError(InvalidValue, "Invalid value for '%s': %q", key, v)
	}
	return f, nil
}

// Int parses an integer argument.
func (p Params) Int(key string) (int, error) {
	v, err := p.String(key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, NewRequestError(InvalidValue, "Invalid value for '%s': %q", key, v)
	}
	return i, nil
}

// Bool parses a boolean argument ("true"/"false" in any case).
func (p Params) Bool(key string) (bool, error) {
	v, err := p.String(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return false, NewRequestError(InvalidValue, "Invalid value for '%s': %q", key, v)
	}
	return b, nil
}

// Request is the parsed form of one API call.
type Request struct {
	DeviceType          DeviceType
	DeviceNumber        int
	Command             string
	Verb                Verb
	ClientTransactionID uint32
	ClientID            uint32
	Params              Params
	Accept              string
}

// NewRequest builds a request without going through HTTP.
func NewRequest(t DeviceType, number int, command string, verb Verb, params Params) *Request {
	if params == nil {
		params = Params{}
	}
	req := Request{
		DeviceType:   t,
		DeviceNumber: number,
		Command:      strings.ToLower(command),
		Verb:         verb,
		Params:       params,
	}
	req.ClientTransactionID, _ = parseTransactionField(params, "ClientTransactionID")
	req.ClientID, _ = parseTransactionField(params, "ClientID")
	return &req
}

// AcceptsImageBytes reports whether the client can take the binary image format.
func (r *Request) AcceptsImageBytes() bool {
	return strings.Contains(strings.ToLower(r.Accept), ImageBytesMimeType)
}

// ParseRequest extracts a Request from an API call routed with the
// {devicetype}, {devicenumber} and {command} path wildcards. GET requests
// carry their parameters in the query, PUT requests in the form body.
func ParseRequest(r *http.Request) (*Request, error) {
	devType, err := ParseDeviceType(r.PathValue("devicetype"))
	if err != nil {
		return nil, NewRequestError(InvalidValue, "%v", err)
	}

	number, err := strconv.Atoi(r.PathValue("devicenumber"))
	if err != nil || number < 0 {
		return nil, NewRequestError(InvalidValue, "Invalid device number: %q", r.PathValue("devicenumber"))
	}

	var verb Verb
	var raw string
	switch r.Method {
	case http.MethodGet:
		verb = VerbGet
		raw = r.URL.RawQuery
	case http.MethodPut:
		verb = VerbPut
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return nil, NewRequestError(RequestFormatError, "Failed to read request body: %v", err)
		}
		raw = string(body)
	default:
		return nil, NewRequestError(RequestFormatError, "Unsupported method %s", r.Method)
	}

	params, err := ParseParams(raw)
	if err != nil {
		return nil, NewRequestError(RequestFormatError, "Malformed parameters: %v", err)
	}

	req := Request{
		DeviceType:   devType,
		DeviceNumber: number,
		Command:      strings.ToLower(r.PathValue("command")),
		Verb:         verb,
		Params:       params,
		Accept:       r.Header.Get("Accept"),
	}

	if req.ClientTransactionID, err = parseTransactionField(params, "ClientTransactionID"); err != nil {
		return &req, err
	}
	if req.ClientID, err = parseTransactionField(params, "ClientID"); err != nil {
		return &req, err
	}
	return &req, nil
}

// parseTransactionField reads an optional unsigned id. Missing means 0.
func parseTransactionField(params Params, key string) (uint32, error) {
	v, ok := params.Get(key)
	if !ok || v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id < 0 || id > 0xFFFFFFFF {
		return 0, NewRequestError(InvalidValue, "%s must be a non-negative integer, got %q", key, v)
	}
	return uint32(id), nil
}
