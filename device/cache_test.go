package device

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsbrex/beat-link/internal/packettest"
	"github.com/itsbrex/beat-link/protocol"
)

var epoch = time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, config Config) *Cache {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Hour
	}

	cache := NewCache(logger, config)
	t.Cleanup(cache.Stop)
	return cache
}

func status(t *testing.T, s packettest.Status, at time.Time) *protocol.CdjStatus {
	t.Helper()

	decoded, err := protocol.DecodeCdjStatus(protocol.Packet{Data: s.Bytes(), Addr: packettest.Sender, ReceivedAt: at})
	require.NoError(t, err)
	return decoded
}

func numbered(s packettest.Status, packetNumber int64) packettest.Status {
	s.PacketNumber = packetNumber
	return s
}

func TestCacheUpdateAndLatest(t *testing.T) {
	cache := newTestCache(t, Config{})

	_, ok := cache.Latest(2)
	assert.False(t, ok)

	first := status(t, numbered(packettest.IdleStatus(2), 10), epoch)
	assert.True(t, cache.Update(first))

	got, ok := cache.Latest(2)
	require.True(t, ok)
	assert.Same(t, first, got)

	second := status(t, numbered(packettest.PlayingStatus(2, 1), 11), epoch.Add(200*time.Millisecond))
	assert.True(t, cache.Update(second))

	got, _ = cache.Latest(2)
	assert.Same(t, second, got)
	assert.Equal(t, 1, cache.Count())

	info, ok := cache.Info(2)
	require.True(t, ok)
	assert.Equal(t, "CDJ-2000nexus", info.Name)
	assert.Equal(t, packettest.Sender, info.Address)
	assert.Equal(t, epoch, info.FirstSeen)
	assert.Equal(t, epoch.Add(200*time.Millisecond), info.LastSeen)
	assert.Equal(t, uint64(2), info.Updates)
}

func TestCacheReordering(t *testing.T) {
	tests := []struct {
		name   string
		cached int64
		next   int64
		stored bool
	}{
		{name: "newer packet", cached: 100, next: 101, stored: true},
		{name: "same packet number", cached: 100, next: 100, stored: true},
		{name: "late packet", cached: 100, next: 99, stored: false},
		{name: "late within window", cached: 100, next: 100 - reorderWindow, stored: false},
		{name: "counter restarted", cached: 5000, next: 1, stored: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newTestCache(t, Config{})

			cached := status(t, numbered(packettest.IdleStatus(3), tt.cached), epoch)
			require.True(t, cache.Update(cached))

			next := status(t, numbered(packettest.PlayingStatus(3, 1), tt.next), epoch.Add(time.Millisecond))
			assert.Equal(t, tt.stored, cache.Update(next))

			got, _ := cache.Latest(3)
			if tt.stored {
				assert.Same(t, next, got)
			} else {
				assert.Same(t, cached, got)
			}
		})
	}
}

func TestCacheDevicesAndStatusesAreOrdered(t *testing.T) {
	cache := newTestCache(t, Config{})

	for _, n := range []int{4, 1, 3} {
		cache.Update(status(t, packettest.IdleStatus(n), epoch))
	}

	assert.Equal(t, []int{1, 3, 4}, cache.Devices())

	statuses := cache.Statuses()
	require.Len(t, statuses, 3)
	for i, n := range []int{1, 3, 4} {
		assert.Equal(t, n, statuses[i].DeviceNumber())
	}
}

func TestCacheTempoMasters(t *testing.T) {
	cache := newTestCache(t, Config{})

	master := packettest.PlayingStatus(2, 1)
	master.Flags |= protocol.MasterFlag

	cache.Update(status(t, packettest.PlayingStatus(1, 1), epoch))
	cache.Update(status(t, master, epoch))
	assert.Len(t, cache.TempoMasters(), 1)
	assert.Equal(t, 2, cache.TempoMasters()[0].DeviceNumber())

	// During a handoff both players may claim the role.
	handoff := packettest.PlayingStatus(1, 2)
	handoff.Flags |= protocol.MasterFlag
	cache.Update(status(t, handoff, epoch.Add(time.Second)))
	assert.Len(t, cache.TempoMasters(), 2)
}

func TestCacheRemove(t *testing.T) {
	cache := newTestCache(t, Config{})
	cache.Update(status(t, packettest.IdleStatus(2), epoch))

	assert.True(t, cache.Remove(2))
	assert.False(t, cache.Remove(2))
	assert.Equal(t, 0, cache.Count())
}

func TestCacheCleanupExpiredDevices(t *testing.T) {
	var mu sync.Mutex
	var expired []int

	cache := newTestCache(t, Config{
		Timeout: 5 * time.Second,
		OnExpire: func(device int) {
			mu.Lock()
			defer mu.Unlock()
			expired = append(expired, device)
		},
	})

	cache.Update(status(t, packettest.IdleStatus(1), epoch))
	cache.Update(status(t, packettest.IdleStatus(2), epoch.Add(4*time.Second)))
	cache.Update(status(t, packettest.IdleStatus(3), epoch))

	removed := cache.cleanupExpiredDevices(epoch.Add(6 * time.Second))
	assert.Equal(t, []int{1, 3}, removed)
	assert.Equal(t, []int{2}, cache.Devices())

	mu.Lock()
	assert.Equal(t, []int{1, 3}, expired)
	mu.Unlock()

	assert.Empty(t, cache.cleanupExpiredDevices(epoch.Add(6*time.Second)))
}

func TestCacheSetTimeout(t *testing.T) {
	cache := newTestCache(t, Config{Timeout: time.Minute})
	cache.Update(status(t, packettest.IdleStatus(1), epoch))

	assert.Empty(t, cache.cleanupExpiredDevices(epoch.Add(10*time.Second)))

	cache.SetTimeout(time.Second)
	assert.Equal(t, []int{1}, cache.cleanupExpiredDevices(epoch.Add(10*time.Second)))
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, Config{})

	var wg sync.WaitGroup
	for n := 1; n <= 4; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				cache.Update(status(t, numbered(packettest.PlayingStatus(n, i+1), int64(i)), epoch))
				cache.Statuses()
				cache.TempoMasters()
			}
		}(n)
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4}, cache.Devices())
	for n := 1; n <= 4; n++ {
		latest, _ := cache.Latest(n)
		assert.Equal(t, int64(49), latest.PacketNumber())
	}
}

func TestCacheSetTimeoutWhileCleaning(t *testing.T) {
	cache := newTestCache(t, Config{Timeout: time.Minute, CleanupInterval: time.Millisecond})
	cache.Update(status(t, packettest.IdleStatus(1), time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cache.SetTimeout(time.Duration(30+i+j) * time.Second)
				time.Sleep(100 * time.Microsecond)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{1}, cache.Devices())
}
