// Documentation: https://ascom-standards.org/api/?urls.primaryName=ASCOM+Alpaca+Management+API

package alpaca

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type ServerDescription struct {
	Name                string `json:"ServerName"`
	Manufacturer        string `json:"Manufacturer"`
	ManufacturerVersion string `json:"ManufacturerVersion"`
	Location            string `json:"Location"`
}

// Server is the Alpaca HTTP front end: management API, device API,
// setup pages and metrics.
type Server struct {
	description ServerDescription
	dispatcher  *Dispatcher
	registry    *prometheus.Registry

	db     *Store
	tmpl   *template.Template
	logger log.FieldLogger
}

func NewServer(description ServerDescription, dispatcher *Dispatcher, db *Store, tmpl *template.Template, logger log.FieldLogger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewStatsCollector(dispatcher))

	return &Server{
		description: description,
		dispatcher:  dispatcher,
		registry:    registry,
		db:          db,
		tmpl:        tmpl,
		logger:      logger,
	}
}

func (s *Server) AddRoutes() *http.ServeMux {
	r := http.NewServeMux()

	// Management API
	r.Handle("GET /management/apiversions", s.handleMgm(s.handleAPIVersions))
	r.Handle("GET /management/v1/description", s.handleMgm(s.handleDescription))
	r.Handle("GET /management/v1/configureddevices", s.handleMgm(s.handleConfiguredDevices))

	// Device API
	r.Handle("GET /api/v1/{devicetype}/{devicenumber}/{command}", s.dispatcher)
	r.Handle("PUT /api/v1/{devicetype}/{devicenumber}/{command}", s.dispatcher)

	// Setup pages
	r.HandleFunc("/setup", s.handleSetup)
	r.HandleFunc("GET /setup/v1/{devicetype}/{devicenumber}/setup", s.handleDeviceSetup)
	r.HandleFunc("POST /setup/v1/{devicetype}/{devicenumber}/save", s.handleDeviceSave)
	r.HandleFunc("PUT /setup/v1/{devicetype}/{devicenumber}/save", s.handleDeviceSave)

	r.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: s.logger,
	}))

	for _, dev := range s.dispatcher.Devices() {
		info := dev.DeviceInfo()
		s.logger.Infof("Serving %s %d (%s)", info.Type, info.Number, info.Name)
	}

	return r
}

// handleMgm wraps a management handler into the standard response envelope.
func (s *Server) handleMgm(fn func(r *http.Request) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := paramsFromValues(r.URL.Query())
		clientTxID, err := parseTransactionField(params, "ClientTransactionID")

		resp := NewResponse()
		if err == nil {
			var value any
			if value, err = fn(r); err == nil {
				resp.SetValue(value)
			}
		}

		t := Trailer{
			ClientTransactionID: clientTxID,
			ServerTransactionID: s.dispatcher.Transactions().Next(),
		}
		status := http.StatusOK
		if aerr := AsError(err); aerr != nil {
			t.ErrorNumber = aerr.Code
			t.ErrorMessage = aerr.Message
			status = aerr.HTTPStatus()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := resp.WriteJSON(w, t); err != nil {
			s.logger.Errorf("Error writing management response: %v", err)
		}
	})
}

func (s *Server) handleAPIVersions(r *http.Request) (any, error) {
	return []int{1}, nil
}

func (s *Server) handleDescription(r *http.Request) (any, error) {
	return s.description, nil
}

func (s *Server) handleConfiguredDevices(r *http.Request) (any, error) {
	devices := s.dispatcher.Devices()
	deviceInfo := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		deviceInfo = append(deviceInfo, device.DeviceInfo())
	}

	return deviceInfo, nil
}

// handleSetup returns a user interface for setting up the server.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.db.GetMQTTConfig()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.renderSetupForm(w, cfg, false, "")

	case http.MethodPost:
		cfg, err := parseSetupForm(r)
		if err != nil {
			s.renderSetupForm(w, cfg, false, err.Error())
			return
		}

		s.logger.Infof("Setting MQTT config: host=%s port=%d topic=%s", cfg.Host, cfg.Port, cfg.TopicRoot)
		if err := s.db.SetMQTTConfig(cfg); err != nil {
			s.renderSetupForm(w, cfg, false, err.Error())
			return
		}
		s.renderSetupForm(w, cfg, true, "")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderSetupForm(w http.ResponseWriter, cfg MQTTConfig, success bool, err string) {
	data := struct {
		Server ServerDescription
		MQTTConfig
		Success bool
		Error   string
	}{s.description, cfg, success, err}

	if err := s.tmpl.ExecuteTemplate(w, "setup.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseSetupForm(r *http.Request) (MQTTConfig, error) {
	if err := r.ParseForm(); err != nil {
		return MQTTConfig{}, fmt.Errorf("error parsing form: %v", err)
	}

	cfg := MQTTConfig{
		Host:      r.FormValue("mqtt-host"),
		Username:  r.FormValue("mqtt-username"),
		Password:  r.FormValue("mqtt-password"),
		TopicRoot: r.FormValue("mqtt-topic-root"),
	}

	port, err := strconv.Atoi(r.FormValue("mqtt-port"))
	if err != nil {
		return cfg, fmt.Errorf("invalid port: %q", r.FormValue("mqtt-port"))
	}
	cfg.Port = port

	return cfg, nil
}

func (s *Server) setupDevice(w http.ResponseWriter, r *http.Request) (Device, Setupper, bool) {
	devType, err := ParseDeviceType(r.PathValue("devicetype"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	number, err := strconv.Atoi(r.PathValue("devicenumber"))
	if err != nil {
		http.Error(w, "invalid device number", http.StatusBadRequest)
		return nil, nil, false
	}

	dev, ok := s.dispatcher.Device(devType, number)
	if !ok {
		http.NotFound(w, r)
		return nil, nil, false
	}
	setup, ok := dev.(Setupper)
	if !ok {
		http.Error(w, fmt.Sprintf("%s %d has no setup", devType, number), http.StatusNotFound)
		return nil, nil, false
	}
	return dev, setup, true
}

func (s *Server) handleDeviceSetup(w http.ResponseWriter, r *http.Request) {
	dev, setup, ok := s.setupDevice(w, r)
	if !ok {
		return
	}
	s.renderDeviceSetup(w, dev, setup, false, "")
}

func (s *Server) handleDeviceSave(w http.ResponseWriter, r *http.Request) {
	dev, setup, ok := s.setupDevice(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderDeviceSetup(w, dev, setup, false, fmt.Sprintf("error parsing form: %v", err))
		return
	}

	if err := SaveSetup(s.db, dev, paramsFromValues(r.PostForm)); err != nil {
		s.renderDeviceSetup(w, dev, setup, false, err.Error())
		return
	}
	s.renderDeviceSetup(w, dev, setup, true, "")
}

func (s *Server) renderDeviceSetup(w http.ResponseWriter, dev Device, setup Setupper, success bool, err string) {
	info := dev.DeviceInfo()
	data := struct {
		Device  DeviceInfo
		Action  string
		Fields  []SetupField
		Success bool
		Error   string
	}{info, SetupFormAction(info.Type, info.Number), setup.SetupFields(), success, err}

	if err := s.tmpl.ExecuteTemplate(w, "device_setup.html", data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
		s.logger.Errorf("Error rendering template: %v", err)
	}
}
