package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alepar/switchbot/delivery"
	"github.com/alepar/switchbot/switchbot"
)

// Metrics mirrors the last reading and counts cycle and delivery outcomes.
// A nil *Metrics records nothing.
type Metrics struct {
	humidity    *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	co2Level    *prometheus.GaugeVec

	cycles   *prometheus.CounterVec
	attempts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		humidity:    newGauge("air_humidity", "Humidity (units: % of relative Humidity)"),
		temperature: newGauge("air_temperature", "Air Temperature (units: degrees Celsius)"),
		co2Level:    newGauge("air_co2_level", "Air Carbon Dioxide level (units: ppm)"),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "co2relay_cycles_total",
				Help: "Collection cycles by result.",
			},
			[]string{"result"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "co2relay_delivery_attempts_total",
				Help: "HTTP delivery attempts by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.humidity, m.temperature, m.co2Level, m.cycles, m.attempts)
	return m
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"device_mac"},
	)
}

func (m *Metrics) observeReading(r switchbot.Reading) {
	if m == nil {
		return
	}
	m.humidity.WithLabelValues(r.DeviceMAC).Set(float64(r.Humidity))
	m.temperature.WithLabelValues(r.DeviceMAC).Set(r.Temperature)
	m.co2Level.WithLabelValues(r.DeviceMAC).Set(float64(r.Co2Level))
}

func (m *Metrics) observeDelivery(outcome delivery.Outcome, err error) {
	if m == nil {
		return
	}
	failed := outcome.Attempts
	if err == nil {
		failed--
		m.attempts.WithLabelValues("success").Inc()
	}
	if failed > 0 {
		m.attempts.WithLabelValues("failure").Add(float64(failed))
	}
}

func (m *Metrics) observeCycle(result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
}
