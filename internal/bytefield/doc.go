// Package bytefield reads and writes unsigned big-endian integers of arbitrary width
// at fixed offsets inside DJ Link packets.
package bytefield
