// Package device keeps the latest status reported by each player on the network.
// Snapshots are published by replacing the stored pointer, and players that fall
// silent are dropped after a configurable timeout.
package device
