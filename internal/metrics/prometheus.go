package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for a beat-link client
type Metrics struct {
	// Packet metrics
	PacketsReceived   *prometheus.CounterVec
	ParseErrors       *prometheus.CounterVec
	UnknownPlayStates *prometheus.CounterVec

	// Listener metrics
	BeatsDelivered   prometheus.Counter
	ListenerDuration *prometheus.HistogramVec
	SlowListeners    *prometheus.CounterVec

	// Device metrics
	ActiveDevices  prometheus.Gauge
	DevicesExpired prometheus.Counter

	registerer prometheus.Registerer
}

// NewMetrics creates all metrics and registers them with reg. A nil reg creates
// unregistered collectors. Registration fails, leaving reg unchanged, when reg
// already holds collectors with the same names.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	// Collectors are built unregistered so a conflict surfaces as an error, not a panic.
	factory := promauto.With(nil)

	m := &Metrics{
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total number of DJ Link packets decoded, by packet kind",
		}, []string{"kind"}),
		ParseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total number of packets that could not be decoded, by reason",
		}, []string{"reason"}),
		UnknownPlayStates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_play_states_total",
			Help:      "Total number of status packets carrying an unrecognized play state byte",
		}, []string{"field"}),

		BeatsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beats_delivered_total",
			Help:      "Total number of beat packets delivered to listeners",
		}),
		ListenerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listener_duration_seconds",
			Help:      "Time spent inside listener callbacks",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to ~160ms
		}, []string{"kind"}),
		SlowListeners: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_listeners_total",
			Help:      "Total number of listener calls that exceeded the listener budget",
		}, []string{"kind"}),

		ActiveDevices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_devices",
			Help:      "Current number of devices with a cached status",
		}),
		DevicesExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_expired_total",
			Help:      "Total number of devices dropped after falling silent",
		}),
	}

	if reg != nil {
		if err := m.register(reg); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PacketsReceived,
		m.ParseErrors,
		m.UnknownPlayStates,
		m.BeatsDelivered,
		m.ListenerDuration,
		m.SlowListeners,
		m.ActiveDevices,
		m.DevicesExpired,
	}
}

// register adds every collector to reg, or none of them.
func (m *Metrics) register(reg prometheus.Registerer) error {
	registered := make([]prometheus.Collector, 0, len(m.collectors()))

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		registered = append(registered, c)
	}

	m.registerer = reg
	return nil
}

// Unregister removes the collectors from the registerer they were registered with,
// so that another client can register under the same names.
func (m *Metrics) Unregister() {
	if m.registerer == nil {
		return
	}

	for _, c := range m.collectors() {
		m.registerer.Unregister(c)
	}
	m.registerer = nil
}

// RecordPacket increments the packets received counter for a packet kind
func (m *Metrics) RecordPacket(kind string) {
	m.PacketsReceived.WithLabelValues(kind).Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError(reason string) {
	m.ParseErrors.WithLabelValues(reason).Inc()
}

// RecordUnknownPlayState counts a status whose play state field was not recognized
func (m *Metrics) RecordUnknownPlayState(field string) {
	m.UnknownPlayStates.WithLabelValues(field).Inc()
}

// RecordBeatDelivered increments the beats delivered counter
func (m *Metrics) RecordBeatDelivered() {
	m.BeatsDelivered.Inc()
}

// RecordListener observes a listener call and counts it as slow when it ran past budget
func (m *Metrics) RecordListener(kind string, elapsed time.Duration, slow bool) {
	m.ListenerDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if slow {
		m.SlowListeners.WithLabelValues(kind).Inc()
	}
}

// SetActiveDevices sets the current number of cached devices
func (m *Metrics) SetActiveDevices(count int) {
	m.ActiveDevices.Set(float64(count))
}

// RecordDeviceExpired increments the devices expired counter
func (m *Metrics) RecordDeviceExpired() {
	m.DevicesExpired.Inc()
}
