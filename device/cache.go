package device

import (
	"context"
	"log/slog"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/itsbrex/beat-link/protocol"
)

// reorderWindow bounds how far behind the cached packet number an update may be
// and still be treated as a late duplicate rather than a restarted counter.
const reorderWindow = 16

// Info describes a cached player for monitoring.
type Info struct {
	Number    int        `json:"number"`
	Name      string     `json:"name"`
	Address   netip.Addr `json:"address"`
	FirstSeen time.Time  `json:"first_seen"`
	LastSeen  time.Time  `json:"last_seen"`
	Updates   uint64     `json:"updates"`
}

type entry struct {
	status    *protocol.CdjStatus
	firstSeen time.Time
	lastSeen  time.Time
	updates   uint64
}

// Config contains the cache settings.
type Config struct {
	Timeout         time.Duration
	CleanupInterval time.Duration

	// OnExpire is called, outside the cache lock, for each player dropped by the cleanup routine.
	OnExpire func(device int)
}

// Cache holds the latest CdjStatus per device number.
type Cache struct {
	devices map[int]*entry
	mu      sync.RWMutex
	logger  *slog.Logger

	timeout  time.Duration
	interval time.Duration
	onExpire func(device int)

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewCache creates a cache and starts its cleanup routine. Stop must be called to release it.
func NewCache(logger *slog.Logger, config Config) *Cache {
	ctx, cancel := context.WithCancel(context.Background())

	interval := config.CleanupInterval
	if interval <= 0 {
		interval = config.Timeout / 2
	}
	if interval <= 0 {
		interval = time.Second
	}

	c := &Cache{
		devices:  make(map[int]*entry),
		logger:   logger,
		timeout:  config.Timeout,
		interval: interval,
		onExpire: config.OnExpire,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	logger.Debug("Device cleanup routine started",
		slog.Duration("timeout", config.Timeout),
		slog.Duration("check_interval", interval),
	)

	go c.startCleanupRoutine()

	return c
}

// Update stores status as the latest for its device. A status that arrives after a
// newer one from the same device is discarded; Update reports whether it was stored.
func (c *Cache) Update(status *protocol.CdjStatus) bool {
	device := status.DeviceNumber()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, exists := c.devices[device]
	if !exists {
		c.devices[device] = &entry{
			status:    status,
			firstSeen: status.Timestamp(),
			lastSeen:  status.Timestamp(),
			updates:   1,
		}

		c.logger.Info("Device seen",
			slog.Int("device", device),
			slog.String("name", status.DeviceName()),
			slog.String("address", status.Address().String()),
		)
		return true
	}

	if isStale(existing.status, status) {
		c.logger.Debug("Discarding out of order status",
			slog.Int("device", device),
			slog.Int64("packet_number", status.PacketNumber()),
			slog.Int64("cached_packet_number", existing.status.PacketNumber()),
		)
		return false
	}

	existing.status = status
	existing.lastSeen = status.Timestamp()
	existing.updates++
	return true
}

func isStale(cached, incoming *protocol.CdjStatus) bool {
	behind := cached.PacketNumber() - incoming.PacketNumber()
	return behind > 0 && behind <= reorderWindow
}

// Latest returns the most recent status for a device.
func (c *Cache) Latest(device int) (*protocol.CdjStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.devices[device]
	if !exists {
		return nil, false
	}
	return e.status, true
}

// Info returns monitoring details for a device.
func (c *Cache) Info(device int) (Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.devices[device]
	if !exists {
		return Info{}, false
	}

	return Info{
		Number:    device,
		Name:      e.status.DeviceName(),
		Address:   e.status.Address(),
		FirstSeen: e.firstSeen,
		LastSeen:  e.lastSeen,
		Updates:   e.updates,
	}, true
}

// Devices returns the numbers of all cached devices in ascending order.
func (c *Cache) Devices() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	numbers := lo.Keys(c.devices)
	slices.Sort(numbers)
	return numbers
}

// Statuses returns the latest status of every cached device, ordered by device number.
func (c *Cache) Statuses() []*protocol.CdjStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := lo.MapToSlice(c.devices, func(_ int, e *entry) *protocol.CdjStatus {
		return e.status
	})
	slices.SortFunc(statuses, func(a, b *protocol.CdjStatus) int {
		return a.DeviceNumber() - b.DeviceNumber()
	})
	return statuses
}

// TempoMasters returns every device whose latest status claims the master role.
// More than one may claim it during a handoff; choosing between them is left to the caller.
func (c *Cache) TempoMasters() []*protocol.CdjStatus {
	return lo.Filter(c.Statuses(), func(s *protocol.CdjStatus, _ int) bool {
		return s.IsTempoMaster()
	})
}

// Count returns the number of cached devices.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// Remove drops a device from the cache.
func (c *Cache) Remove(device int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.devices[device]
	if !exists {
		return false
	}

	delete(c.devices, device)

	c.logger.Info("Device removed",
		slog.Int("device", device),
		slog.String("name", e.status.DeviceName()),
		slog.Uint64("updates", e.updates),
		slog.Duration("seen_for", e.lastSeen.Sub(e.firstSeen)),
	)

	return true
}

// SetTimeout changes how long a device may stay silent before it is dropped.
func (c *Cache) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Stop ends the cleanup routine. Cached statuses remain readable.
func (c *Cache) Stop() {
	c.cancel()
	<-c.cleanup

	c.logger.Info("Device cache stopped", slog.Int("remaining_devices", c.Count()))
}

// startCleanupRoutine runs in a separate goroutine to drop silent devices
func (c *Cache) startCleanupRoutine() {
	defer close(c.cleanup)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case now := <-ticker.C:
			c.cleanupExpiredDevices(now)
		}
	}
}

// cleanupExpiredDevices removes devices last heard from more than the timeout before now
func (c *Cache) cleanupExpiredDevices(now time.Time) []int {
	expired := make([]int, 0)

	// The timeout changes under the lock while the cache runs.
	c.mu.RLock()
	for device, e := range c.devices {
		if now.Sub(e.lastSeen) > c.timeout {
			expired = append(expired, device)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return expired
	}

	c.logger.Info("Cleaning up silent devices", slog.Int("expired_count", len(expired)))

	slices.Sort(expired)
	for _, device := range expired {
		if c.Remove(device) && c.onExpire != nil {
			c.onExpire(device)
		}
	}

	return expired
}
