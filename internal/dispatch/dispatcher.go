package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itsbrex/beat-link/device"
	"github.com/itsbrex/beat-link/internal/metrics"
	"github.com/itsbrex/beat-link/position"
	"github.com/itsbrex/beat-link/protocol"
)

// Listener kinds, used as metric labels
const (
	KindStatus = "status"
	KindBeat   = "beat"
)

// Parse error reasons, used as metric labels
const (
	ReasonMalformed   = "malformed"
	ReasonUnknownType = "unknown_type"
)

// Config contains dispatcher settings.
type Config struct {
	ListenerBudget time.Duration
}

// Dispatcher decodes packets and fans them out.
type Dispatcher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   *device.Cache
	tracker *position.Tracker

	budget atomic.Int64

	beatListeners   listenerSet[protocol.BeatListener]
	statusListeners listenerSet[protocol.StatusListener]

	// Statistics
	stats Statistics
	mu    sync.RWMutex
}

// Statistics counts what the dispatcher has seen since it was created.
type Statistics struct {
	PacketsReceived   uint64 `json:"packets_received"`
	StatusPackets     uint64 `json:"status_packets"`
	BeatPackets       uint64 `json:"beat_packets"`
	ParseErrors       uint64 `json:"parse_errors"`
	MalformedPackets  uint64 `json:"malformed_packets"`
	UnknownTypes      uint64 `json:"unknown_types"`
	StalePackets      uint64 `json:"stale_packets"`
	UnknownPlayStates uint64 `json:"unknown_play_states"`
	SlowListeners     uint64 `json:"slow_listeners"`
	ListenerPanics    uint64 `json:"listener_panics"`
	ActiveDevices     uint64 `json:"active_devices"`
	BeatListeners     uint64 `json:"beat_listeners"`
	StatusListeners   uint64 `json:"status_listeners"`
}

// New creates a dispatcher feeding cache and tracker.
func New(logger *slog.Logger, cache *device.Cache, tracker *position.Tracker, m *metrics.Metrics, config Config) *Dispatcher {
	d := &Dispatcher{
		logger:  logger,
		metrics: m,
		cache:   cache,
		tracker: tracker,
	}
	d.SetListenerBudget(config.ListenerBudget)
	return d
}

// SetListenerBudget changes how long a single listener call may take before it is reported as slow.
func (d *Dispatcher) SetListenerBudget(budget time.Duration) {
	d.budget.Store(int64(budget))
}

// ListenerBudget returns the current listener budget.
func (d *Dispatcher) ListenerBudget() time.Duration {
	return time.Duration(d.budget.Load())
}

// AddBeatListener registers l for every beat packet. The returned function removes it
// and may be called more than once.
func (d *Dispatcher) AddBeatListener(l protocol.BeatListener) (remove func()) {
	return d.beatListeners.add(l)
}

// AddStatusListener registers l for every status packet that updates the cache.
func (d *Dispatcher) AddStatusListener(l protocol.StatusListener) (remove func()) {
	return d.statusListeners.add(l)
}

// HandlePacket decodes one datagram and delivers it. Decoding errors are counted and
// returned; the caller decides whether to log them again.
func (d *Dispatcher) HandlePacket(pkt protocol.Packet) error {
	d.mu.Lock()
	d.stats.PacketsReceived++
	d.mu.Unlock()

	update, err := protocol.Parse(pkt)
	if err != nil {
		d.recordParseError(pkt, err)
		return err
	}

	switch u := update.(type) {
	case *protocol.CdjStatus:
		d.handleStatus(u)
	case *protocol.Beat:
		d.handleBeat(u)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownPacketType, update)
	}

	return nil
}

func (d *Dispatcher) recordParseError(pkt protocol.Packet, err error) {
	reason := ReasonMalformed
	if errors.Is(err, protocol.ErrUnknownPacketType) {
		reason = ReasonUnknownType
	}

	d.mu.Lock()
	d.stats.ParseErrors++
	if reason == ReasonUnknownType {
		d.stats.UnknownTypes++
	} else {
		d.stats.MalformedPackets++
	}
	d.mu.Unlock()

	d.metrics.RecordParseError(reason)

	// Other DJ Link traffic shares the ports, so this is routine.
	d.logger.Debug("Failed to decode packet",
		slog.String("remote_addr", pkt.Addr.String()),
		slog.Int("packet_size", len(pkt.Data)),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

// handleStatus updates the cache and tracker, then notifies status listeners
func (d *Dispatcher) handleStatus(status *protocol.CdjStatus) {
	d.metrics.RecordPacket(KindStatus)
	d.checkPlayStates(status)

	d.mu.Lock()
	d.stats.StatusPackets++
	d.mu.Unlock()

	if !d.cache.Update(status) {
		d.mu.Lock()
		d.stats.StalePackets++
		d.mu.Unlock()
		return
	}
	d.metrics.SetActiveDevices(d.cache.Count())

	d.tracker.HandleStatus(status)

	for _, e := range d.statusListeners.snapshot() {
		d.deliver(KindStatus, status.DeviceNumber(), func() { e.listener.ReceivedStatus(status) })
	}
}

// handleBeat advances the tracker, then notifies beat listeners
func (d *Dispatcher) handleBeat(beat *protocol.Beat) {
	d.metrics.RecordPacket(KindBeat)

	d.mu.Lock()
	d.stats.BeatPackets++
	d.mu.Unlock()

	d.tracker.NewBeat(beat)

	for _, e := range d.beatListeners.snapshot() {
		d.deliver(KindBeat, beat.DeviceNumber(), func() { e.listener.NewBeat(beat) })
	}
	d.metrics.RecordBeatDelivered()
}

// checkPlayStates counts play state bytes this package does not recognize. They still
// decode, as Unknown, but a rising count points at new firmware.
func (d *Dispatcher) checkPlayStates(status *protocol.CdjStatus) {
	fields := []struct {
		name  string
		known bool
	}{
		{"play_state_1", status.PlayState1().Known()},
		{"play_state_2", status.PlayState2().Known()},
		{"play_state_3", status.PlayState3().Known()},
	}

	for _, f := range fields {
		if f.known {
			continue
		}

		d.mu.Lock()
		d.stats.UnknownPlayStates++
		d.mu.Unlock()

		d.metrics.RecordUnknownPlayState(f.name)
		d.logger.Debug("Unrecognized play state",
			slog.Int("device", status.DeviceNumber()),
			slog.String("field", f.name),
		)
	}
}

// deliver runs one listener call, timing it against the budget and recovering a panic
func (d *Dispatcher) deliver(kind string, device int, call func()) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.mu.Lock()
			d.stats.ListenerPanics++
			d.mu.Unlock()

			d.logger.Error("Listener panicked",
				slog.String("kind", kind),
				slog.Int("device", device),
				slog.String("panic", fmt.Sprint(r)),
			)
		}

		elapsed := time.Since(start)
		budget := d.ListenerBudget()
		slow := budget > 0 && elapsed > budget
		d.metrics.RecordListener(kind, elapsed, slow)

		if slow {
			d.mu.Lock()
			d.stats.SlowListeners++
			d.mu.Unlock()

			d.logger.Warn("Listener exceeded budget",
				slog.String("kind", kind),
				slog.Int("device", device),
				slog.Duration("elapsed", elapsed),
				slog.Duration("budget", budget),
			)
		}
	}()

	call()
}

// GetStatistics returns current dispatcher statistics
func (d *Dispatcher) GetStatistics() Statistics {
	d.mu.RLock()
	stats := d.stats
	d.mu.RUnlock()

	stats.ActiveDevices = uint64(d.cache.Count())
	stats.BeatListeners = uint64(d.beatListeners.len())
	stats.StatusListeners = uint64(d.statusListeners.len())
	return stats
}
