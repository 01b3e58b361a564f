package beatlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/itsbrex/beat-link/config"
	"github.com/itsbrex/beat-link/device"
	"github.com/itsbrex/beat-link/internal/dispatch"
	"github.com/itsbrex/beat-link/internal/logging"
	"github.com/itsbrex/beat-link/internal/metrics"
	"github.com/itsbrex/beat-link/position"
	"github.com/itsbrex/beat-link/protocol"
)

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	registerer    prometheus.Registerer
	registererSet bool
}

// WithLogger makes the client log through logger instead of one built from the logging configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the client's metrics with reg instead of the default
// Prometheus registerer. Only one open client can use a given registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
		o.registererSet = true
	}
}

// Client ties together decoding, the device cache, the position tracker and listener dispatch.
type Client struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cache      *device.Cache
	tracker    *position.Tracker
	dispatcher *dispatch.Dispatcher

	config *config.Config
	mu     sync.RWMutex

	closeOnce sync.Once
}

// New creates a client. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Logging); err != nil {
			return nil, err
		}
	}

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
		if o.registererSet {
			reg = o.registerer
		}
	}
	m, err := metrics.NewMetrics(reg, cfg.Metrics.Namespace)
	if err != nil {
		return nil, err
	}

	tracker := position.NewTracker(logger.With(slog.String("component", "position")))

	cache := device.NewCache(logger.With(slog.String("component", "devices")), device.Config{
		Timeout:         cfg.Devices.GetTimeoutDuration(),
		CleanupInterval: cfg.Devices.GetCleanupIntervalDuration(),
		OnExpire: func(number int) {
			tracker.Forget(number)
			m.RecordDeviceExpired()
			m.ActiveDevices.Dec()
		},
	})

	dispatcher := dispatch.New(logger.With(slog.String("component", "dispatch")), cache, tracker, m, dispatch.Config{
		ListenerBudget: cfg.Dispatch.GetListenerBudget(),
	})

	logger.Info("Beat link client initialized",
		slog.Duration("device_timeout", cfg.Devices.GetTimeoutDuration()),
		slog.Duration("listener_budget", cfg.Dispatch.GetListenerBudget()),
		slog.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	stored := *cfg
	return &Client{
		logger:     logger,
		metrics:    m,
		cache:      cache,
		tracker:    tracker,
		dispatcher: dispatcher,
		config:     &stored,
	}, nil
}

// HandlePacket decodes a received datagram and delivers it to the cache, the tracker
// and listeners. The returned error wraps protocol.ErrMalformedPacket or
// protocol.ErrUnknownPacketType.
func (c *Client) HandlePacket(pkt protocol.Packet) error {
	return c.dispatcher.HandlePacket(pkt)
}

// AddBeatListener registers l for every beat. Call the returned function to remove it.
func (c *Client) AddBeatListener(l protocol.BeatListener) (remove func()) {
	return c.dispatcher.AddBeatListener(l)
}

// AddStatusListener registers l for every accepted status. Call the returned function to remove it.
func (c *Client) AddStatusListener(l protocol.StatusListener) (remove func()) {
	return c.dispatcher.AddStatusListener(l)
}

// LatestStatus returns the most recent status from a device.
func (c *Client) LatestStatus(device int) (*protocol.CdjStatus, bool) {
	return c.cache.Latest(device)
}

// Statuses returns the latest status of every known device, ordered by device number.
func (c *Client) Statuses() []*protocol.CdjStatus {
	return c.cache.Statuses()
}

// DeviceInfo returns monitoring details about a device.
func (c *Client) DeviceInfo(number int) (device.Info, bool) {
	return c.cache.Info(number)
}

// TempoMasters returns every device currently claiming the tempo master role.
func (c *Client) TempoMasters() []*protocol.CdjStatus {
	return c.cache.TempoMasters()
}

// SetBeatGrid supplies the beat grid of the track loaded on a device, enabling
// position tracking for it. A nil grid stops tracking.
func (c *Client) SetBeatGrid(device int, grid position.BeatGrid) {
	c.tracker.SetBeatGrid(device, grid)
}

// Position estimates where a device is in its track right now.
func (c *Client) Position(device int) (position.TrackPosition, bool) {
	return c.tracker.Position(device, time.Now())
}

// PositionAt estimates where a device is, or was, in its track at the given time.
func (c *Client) PositionAt(device int, at time.Time) (position.TrackPosition, bool) {
	return c.tracker.Position(device, at)
}

// LatestPosition returns the last position recorded from a packet, without interpolation.
func (c *Client) LatestPosition(device int) (position.TrackPosition, bool) {
	return c.tracker.Latest(device)
}

// Config returns a copy of the configuration in effect.
func (c *Client) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.config
}

// ApplyConfig switches to a new configuration. The device timeout and listener
// budget take effect immediately; logging, metrics and the cleanup interval are
// fixed when the client is created.
func (c *Client) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.Logging != c.config.Logging || cfg.Metrics != c.config.Metrics ||
		cfg.Devices.CleanupInterval != c.config.Devices.CleanupInterval {
		c.logger.Warn("Some configuration changes require a new client to take effect")
	}

	c.cache.SetTimeout(cfg.Devices.GetTimeoutDuration())
	c.dispatcher.SetListenerBudget(cfg.Dispatch.GetListenerBudget())

	stored := *cfg
	c.config = &stored

	c.logger.Info("Configuration applied",
		slog.Duration("device_timeout", cfg.Devices.GetTimeoutDuration()),
		slog.Duration("listener_budget", cfg.Dispatch.GetListenerBudget()),
	)

	return nil
}

// WatchConfig applies the file at path every time it changes, until ctx is cancelled.
func (c *Client) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, c.logger, func(cfg *config.Config) {
		if err := c.ApplyConfig(cfg); err != nil {
			c.logger.Warn("Failed to apply configuration",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Statistics counts packets, decode failures and listener calls since the client was created.
type Statistics = dispatch.Statistics

// Statistics returns packet and listener counters.
func (c *Client) Statistics() Statistics {
	return c.dispatcher.GetStatistics()
}

// Close stops background work and unregisters the client's metrics. Cached state
// stays readable.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cache.Stop()
		c.metrics.Unregister()

		stats := c.dispatcher.GetStatistics()
		c.logger.Info("Beat link client closed",
			slog.Uint64("packets_received", stats.PacketsReceived),
			slog.Uint64("parse_errors", stats.ParseErrors),
			slog.Uint64("active_devices", stats.ActiveDevices),
		)
	})
	return nil
}
