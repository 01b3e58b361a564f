package protocol

// BeatListener receives beat announcements. NewBeat runs synchronously on the
// goroutine that handles incoming packets, so implementations must return promptly
// and hand any slow work off elsewhere.
type BeatListener interface {
	NewBeat(beat *Beat)
}

// BeatListenerFunc adapts an ordinary function to a BeatListener.
type BeatListenerFunc func(beat *Beat)

// NewBeat calls f(beat).
func (f BeatListenerFunc) NewBeat(beat *Beat) { f(beat) }

// StatusListener receives every decoded CDJ status packet, under the same
// non-blocking obligation as BeatListener.
type StatusListener interface {
	ReceivedStatus(status *CdjStatus)
}

// StatusListenerFunc adapts an ordinary function to a StatusListener.
type StatusListenerFunc func(status *CdjStatus)

// ReceivedStatus calls f(status).
func (f StatusListenerFunc) ReceivedStatus(status *CdjStatus) { f(status) }
