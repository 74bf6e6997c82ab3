package alpaca

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsDesc = prometheus.NewDesc(
		"alpaca_commands_total", "Commands processed, by device and command.",
		[]string{"device", "number", "command", "verb"}, nil,
	)
	commandErrorsDesc = prometheus.NewDesc(
		"alpaca_command_errors_total", "Commands answered with a non-zero ErrorNumber.",
		[]string{"device", "number", "command"}, nil,
	)
	connectedDesc = prometheus.NewDesc(
		"alpaca_device_connected", "Device connection state (1=connected).",
		[]string{"device", "number"}, nil,
	)
	transactionsDesc = prometheus.NewDesc(
		"alpaca_server_transactions_total", "Responses sent by the server.", nil, nil,
	)
)

// StatsCollector exposes the dispatcher command statistics to Prometheus.
type StatsCollector struct {
	dispatcher *Dispatcher
}

func NewStatsCollector(d *Dispatcher) *StatsCollector {
	return &StatsCollector{dispatcher: d}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- commandsDesc
	ch <- commandErrorsDesc
	ch <- connectedDesc
	ch <- transactionsDesc
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, dev := range c.dispatcher.Devices() {
		info := dev.DeviceInfo()
		devType := strings.ToLower(info.Type.String())
		number := strconv.Itoa(info.Number)

		connected := 0.0
		if dev.Connected() {
			connected = 1
		}
		ch <- prometheus.MustNewConstMetric(connectedDesc, prometheus.GaugeValue, connected, devType, number)

		for _, st := range dev.Stats().Snapshot() {
			ch <- prometheus.MustNewConstMetric(commandsDesc, prometheus.CounterValue, float64(st.Get), devType, number, st.Name, "GET")
			ch <- prometheus.MustNewConstMetric(commandsDesc, prometheus.CounterValue, float64(st.Put), devType, number, st.Name, "PUT")
			ch <- prometheus.MustNewConstMetric(commandErrorsDesc, prometheus.CounterValue, float64(st.Errors), devType, number, st.Name)
		}
	}

	ch <- prometheus.MustNewConstMetric(transactionsDesc, prometheus.CounterValue, float64(c.dispatcher.Transactions().Current()))
}
