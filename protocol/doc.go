// Package protocol decodes DJ Link packets into immutable device updates.
// It handles the shared packet header, CDJ status packets with their play-state
// classifiers and cue countdown display, beat packets, pitch conversion, and the
// listener contracts through which decoded updates are delivered.
package protocol
